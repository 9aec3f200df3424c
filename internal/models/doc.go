// Package models defines the core domain models for cardsplit.
//
// # Owned Models
//
// The sharing engine owns these models:
//   - Share: one participant's allocation of one invoice item
//   - ParticipantShare: aggregated total owed by one email identity on an invoice
//   - AllocationRequest: one (participant, percentage) entry of a split request
//
// # Read Models
//
// These are supplied by collaborators and only read by the engine:
//   - User: registered account holder
//   - TrustedContact: informal participant owned by a card owner
//   - CreditCard, Invoice, InvoiceItem: the billing hierarchy
//
// # Design Principles
//
//  1. **Exact money**: amounts and percentages are decimal.Decimal, never float64
//  2. **Closed participant variant**: a Participant is either a user or a contact,
//     constructed only through UserParticipant or ContactParticipant
//  3. **IDs over pointers**: relationships are expressed with ID strings
package models
