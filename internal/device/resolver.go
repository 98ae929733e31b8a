package device

import (
	"context"

	"github.com/gripid/tracker-core/internal/identity"
)

// Resolver answers whether a candidate identity collides with a registered
// device. It never writes.
type Resolver struct {
	repo Repository
}

// NewResolver creates a Resolver reading from repo.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// FindConflict returns the first device colliding with candidate, or nil.
func (r *Resolver) FindConflict(ctx context.Context, candidate Identity) (*Conflict, error) {
	matches, err := r.repo.FindMatches(ctx, candidate, "")
	if err != nil {
		return nil, err
	}
	return ResolveConflict(candidate, matches), nil
}

// FindConflictExcept is FindConflict ignoring the device with id selfID,
// used when a device edits its own identifiers.
func (r *Resolver) FindConflictExcept(ctx context.Context, candidate Identity, selfID string) (*Conflict, error) {
	matches, err := r.repo.FindMatches(ctx, candidate, selfID)
	if err != nil {
		return nil, err
	}
	return ResolveConflict(candidate, matches), nil
}

// ResolveConflict picks the reported conflict among existing devices.
//
// The predicate matches when the serials are equal ignoring case, or when
// a non-empty candidate IMEI equals either IMEI of an existing device. A
// serial match anywhere in existing wins over an IMEI match; within a
// reason the earliest device in existing is reported.
func ResolveConflict(candidate Identity, existing []Device) *Conflict {
	for i := range existing {
		if identity.SameSerial(candidate.Serial, existing[i].Serial) {
			return &Conflict{Reason: ReasonSerial, Existing: existing[i]}
		}
	}
	imeis := candidate.IMEIs()
	for i := range existing {
		for _, imei := range imeis {
			if existing[i].holds(imei) {
				return &Conflict{Reason: ReasonIMEI, Existing: existing[i]}
			}
		}
	}
	return nil
}
