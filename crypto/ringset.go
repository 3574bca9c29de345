package crypto

// RingSet groups the four independent key rings the integrity plane
// maintains: events, receipts, delegation tokens, and policy-integrity
// (consent proofs). Keeping them separate means rotating one ring's active
// key never invalidates signatures produced by another.
type RingSet struct {
	Events      *Ring
	Receipts    *Ring
	Delegations *Ring
	Consent     *Ring
}
