// Package tracking holds the tracked token account model and its lifecycle rules.
package tracking

import (
	"sort"
	"time"
)

// Category is fixed when an account is first discovered.
type Category string

const (
	CategoryOperatorOwned Category = "operator-owned"
	CategoryUserOwned     Category = "user-owned"
)

// Status is refreshed by the monitor and the reclaimer.
type Status string

const (
	StatusActive    Status = "active"
	StatusEligible  Status = "eligible"
	StatusClosed    Status = "closed"
	StatusReclaimed Status = "reclaimed"
)

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusReclaimed
}

// Metadata holds discovery provenance plus the monitor and reclaimer fields.
type Metadata struct {
	Mint        string `json:"mint,omitempty"`
	Owner       string `json:"owner,omitempty"`
	CreatedInTx string `json:"createdInTx,omitempty"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
	IsNew       bool   `json:"isNew"`

	Lamports     uint64     `json:"lamports,omitempty"`
	TokenBalance uint64     `json:"tokenBalance,omitempty"`
	Status       Status     `json:"status,omitempty"`
	CheckedAt    *time.Time `json:"checkedAt,omitempty"`

	ReclaimedAt       *time.Time `json:"reclaimedAt,omitempty"`
	LamportsRecovered *uint64    `json:"lamportsRecovered,omitempty"`
	ReclaimSignature  string     `json:"reclaimSignature,omitempty"`
}

// TrackedAccount is one token account paid for by the operator.
type TrackedAccount struct {
	Address      string    `json:"address"`
	DiscoveredAt time.Time `json:"discoveredAt"`
	Category     Category  `json:"category"`
	Reclaimable  bool      `json:"reclaimable"`
	Metadata     Metadata  `json:"metadata"`
}

// Discovery is a token balance entry seen in a confirmed transaction.
type Discovery struct {
	Address   string
	Mint      string
	Owner     string
	Signature string
	BlockTime *int64
	IsNew     bool
}

// Classify returns the category for a token account owner.
func Classify(owner, operator string) Category {
	if owner == operator {
		return CategoryOperatorOwned
	}
	return CategoryUserOwned
}

// NewTrackedAccount builds the record for a first sighting.
func NewTrackedAccount(d Discovery, operator string, now time.Time) *TrackedAccount {
	category := Classify(d.Owner, operator)

	createdAt := now.Unix()
	if d.BlockTime != nil {
		createdAt = *d.BlockTime
	}

	return &TrackedAccount{
		Address:      d.Address,
		DiscoveredAt: now.UTC(),
		Category:     category,
		Reclaimable:  category == CategoryOperatorOwned,
		Metadata: Metadata{
			Mint:        d.Mint,
			Owner:       d.Owner,
			CreatedInTx: d.Signature,
			CreatedAt:   createdAt,
			IsNew:       d.IsNew,
		},
	}
}

// IsEligible is the reclaim predicate: an empty token account holding at least threshold lamports.
func IsEligible(lamports, tokenBalance, threshold uint64) bool {
	return tokenBalance == 0 && lamports >= threshold
}

// Evaluate maps an observed balance to active or eligible.
func Evaluate(lamports, tokenBalance, threshold uint64) Status {
	if IsEligible(lamports, tokenBalance, threshold) {
		return StatusEligible
	}
	return StatusActive
}

// Observation is the on-chain state the monitor read for an existing account.
type Observation struct {
	Lamports     uint64
	TokenBalance uint64
}

// Observe applies one monitor reading. A nil observation means the account no
// longer exists and always yields closed. Terminal statuses are kept when the
// account is still present.
func (a *TrackedAccount) Observe(obs *Observation, threshold uint64, now time.Time) Status {
	checked := now.UTC()
	a.Metadata.CheckedAt = &checked

	if obs == nil {
		a.Metadata.Status = StatusClosed
		return StatusClosed
	}

	if a.Metadata.Status.IsTerminal() {
		return a.Metadata.Status
	}

	a.Metadata.Lamports = obs.Lamports
	a.Metadata.TokenBalance = obs.TokenBalance
	a.Metadata.Status = Evaluate(obs.Lamports, obs.TokenBalance, threshold)
	return a.Metadata.Status
}

// MarkReclaimed records a confirmed close.
func (a *TrackedAccount) MarkReclaimed(lamports uint64, signature string, now time.Time) {
	at := now.UTC()
	recovered := lamports
	a.Metadata.Status = StatusReclaimed
	a.Metadata.ReclaimedAt = &at
	a.Metadata.LamportsRecovered = &recovered
	a.Metadata.ReclaimSignature = signature
}

// WasReclaimed is true once a close has been confirmed, even if a later check marked the account closed.
func (a *TrackedAccount) WasReclaimed() bool {
	return a.Metadata.Status == StatusReclaimed || a.Metadata.ReclaimedAt != nil
}

// AccountSet is the whole tracked-account document keyed by address.
type AccountSet map[string]*TrackedAccount

// Insert adds acc unless its address is already tracked. First sighting wins.
func (s AccountSet) Insert(acc *TrackedAccount) bool {
	if _, ok := s[acc.Address]; ok {
		return false
	}
	s[acc.Address] = acc
	return true
}

// Addresses returns the tracked addresses in ascending order.
func (s AccountSet) Addresses() []string {
	addresses := make([]string, 0, len(s))
	for address := range s {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}

// Sorted returns the accounts ordered by address.
func (s AccountSet) Sorted() []*TrackedAccount {
	accounts := make([]*TrackedAccount, 0, len(s))
	for _, address := range s.Addresses() {
		accounts = append(accounts, s[address])
	}
	return accounts
}

// Eligible returns reclaimable accounts currently marked eligible, ordered by address.
func (s AccountSet) Eligible() []*TrackedAccount {
	var out []*TrackedAccount
	for _, acc := range s.Sorted() {
		if acc.Reclaimable && acc.Metadata.Status == StatusEligible {
			out = append(out, acc)
		}
	}
	return out
}
