package tracking

import "time"

const DryRunNote = "Dry run - account would be reclaimed if DRY_RUN=false"

// ReclaimRecord is one resolved reclaim attempt. Records are only ever appended.
type ReclaimRecord struct {
	Address           string    `json:"address"`
	ReclaimedAt       time.Time `json:"reclaimedAt"`
	LamportsRecovered *uint64   `json:"lamportsRecovered,omitempty"`
	Signature         string    `json:"signature,omitempty"`
	Note              string    `json:"note,omitempty"`
	DryRun            bool      `json:"dryRun,omitempty"`

	TokenMint    string   `json:"tokenMint,omitempty"`
	AccountOwner string   `json:"accountOwner,omitempty"`
	Category     Category `json:"category,omitempty"`
}

// NewDryRunRecord builds the record for a simulated reclaim. acc may be nil for untracked addresses.
func NewDryRunRecord(address string, acc *TrackedAccount, now time.Time) ReclaimRecord {
	rec := ReclaimRecord{
		Address:     address,
		ReclaimedAt: now.UTC(),
		Note:        DryRunNote,
		DryRun:      true,
	}
	rec.denormalize(acc)
	return rec
}

// NewReclaimRecord builds the record for a confirmed close.
func NewReclaimRecord(address string, acc *TrackedAccount, lamports uint64, signature string, now time.Time) ReclaimRecord {
	recovered := lamports
	rec := ReclaimRecord{
		Address:           address,
		ReclaimedAt:       now.UTC(),
		LamportsRecovered: &recovered,
		Signature:         signature,
		Note:              "Closed token account and recovered rent",
	}
	rec.denormalize(acc)
	return rec
}

func (r *ReclaimRecord) denormalize(acc *TrackedAccount) {
	if acc == nil {
		return
	}
	r.TokenMint = acc.Metadata.Mint
	r.AccountOwner = acc.Metadata.Owner
	r.Category = acc.Category
}
