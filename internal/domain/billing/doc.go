// Package billing provides the domain model for condominium utility and service billing.
//
// This package implements the billing bounded context, which is responsible for:
//   - Pricing metered consumption with progressive tariff schedules
//   - Describing monthly bills per apartment (electricity, water, fixed service, manual)
//   - Holding the reference data bills are derived from (meter readings, service fees, apartments)
//
// Key Aggregates:
//   - Bill: a single charge against an apartment, settled all-or-nothing
//
// Value Objects:
//   - TariffSchedule: ordered consumption blocks with per-unit prices and surcharges
//   - Period: a billing month and the deadline derived from it
//
// The billing domain integrates with:
//   - Payment domain: settlement marks bills as paid
//   - Notification: BillCreated events feed resident notifications
package billing
