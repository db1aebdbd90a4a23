// Package models holds the GORM persistence models and their conversions to
// and from the billing, payment and notification domain types.
package models
