package service

import (
	"context"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/harborline/merchops/internal/recon/entity"
	"github.com/harborline/merchops/internal/recon/repository"
)

// In-memory stand-ins for the gorm repositories. They copy rows in and out
// the way a database round-trip would, so services cannot cheat through
// shared pointers.

type fakeDirectory struct {
	vendors []entity.Vendor
	aliases map[string]string // normalized alias -> vendor id
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{aliases: make(map[string]string)}
}

func (d *fakeDirectory) addVendor(id, canonicalName string) {
	d.vendors = append(d.vendors, entity.Vendor{ID: id, CanonicalName: canonicalName})
}

func (d *fakeDirectory) addAlias(vendorID, aliasText string) {
	d.aliases[normalizeName(aliasText)] = vendorID
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (d *fakeDirectory) FindByCanonicalName(ctx context.Context, name string) (*entity.Vendor, error) {
	for _, v := range d.vendors {
		if normalizeName(v.CanonicalName) == normalizeName(name) {
			out := v
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (d *fakeDirectory) FindByAlias(ctx context.Context, raw string) (*entity.Vendor, error) {
	id, ok := d.aliases[normalizeName(raw)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, v := range d.vendors {
		if v.ID == id {
			out := v
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeProjectionRepo struct {
	rows      map[string]entity.Projection
	history   []entity.ProjectionHistory
	snapshots []entity.ExpiredProjection // written by the set-based sweep
	failOn    map[string]error           // projection id -> forced write error
	ledger    *fakeLedger                // shared target for transactional ledger writes
}

func newFakeProjectionRepo() *fakeProjectionRepo {
	return &fakeProjectionRepo{
		rows:   make(map[string]entity.Projection),
		failOn: make(map[string]error),
	}
}

func (r *fakeProjectionRepo) add(p entity.Projection) {
	r.rows[p.ID] = p
}

func (r *fakeProjectionRepo) FindByID(ctx context.Context, id string) (*entity.Projection, error) {
	p, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := p
	return &out, nil
}

func (r *fakeProjectionRepo) FindOpenByVendor(ctx context.Context, vendorID string) ([]entity.Projection, error) {
	var out []entity.Projection
	for _, p := range r.rows {
		if p.VendorID == vendorID &&
			(p.MatchStatus == entity.MatchStatusUnmatched || p.MatchStatus == entity.MatchStatusPartial) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProjectionRepo) Update(ctx context.Context, p *entity.Projection) error {
	if err := r.failOn[p.ID]; err != nil {
		return err
	}
	if _, ok := r.rows[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.rows[p.ID] = *p
	return nil
}

// ExpireWithSnapshot mirrors the transactional repo method: on a forced
// failure neither the projection nor the ledger row is written.
func (r *fakeProjectionRepo) ExpireWithSnapshot(ctx context.Context, p *entity.Projection, snapshot *entity.ExpiredProjection) error {
	if err := r.failOn[p.ID]; err != nil {
		return err
	}
	if _, ok := r.rows[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.rows[p.ID] = *p
	if r.ledger != nil {
		r.ledger.rows[snapshot.ID] = *snapshot
	}
	return nil
}

func (r *fakeProjectionRepo) RestoreFromSnapshot(ctx context.Context, p *entity.Projection, ledger *entity.ExpiredProjection) error {
	if err := r.failOn[p.ID]; err != nil {
		return err
	}
	if _, ok := r.rows[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.rows[p.ID] = *p
	if r.ledger != nil {
		r.ledger.rows[ledger.ID] = *ledger
	}
	return nil
}

func (r *fakeProjectionRepo) ReplaceForVendor(ctx context.Context, rows []entity.Projection) error {
	for _, p := range rows {
		r.rows[p.ID] = p
	}
	return nil
}

func (r *fakeProjectionRepo) ArchiveForVendor(ctx context.Context, vendorID string, archivedAt time.Time) (int64, error) {
	var archived int64
	for id, p := range r.rows {
		if p.VendorID != vendorID {
			continue
		}
		r.history = append(r.history, entity.ProjectionHistory{
			ID:               "hist-" + id,
			ProjectionID:     p.ID,
			VendorID:         p.VendorID,
			Brand:            p.Brand,
			SKU:              p.SKU,
			Collection:       p.Collection,
			OrderType:        p.OrderType,
			Year:             p.Year,
			Month:            p.Month,
			ProjectedQty:     p.ProjectedQty,
			ProjectedValue:   p.ProjectedValue,
			MatchStatus:      p.MatchStatus,
			MatchedPONumber:  p.MatchedPONumber,
			MatchedAt:        p.MatchedAt,
			ActualQty:        p.ActualQty,
			ActualValue:      p.ActualValue,
			QuantityVariance: p.QuantityVariance,
			ValueVariance:    p.ValueVariance,
			VariancePct:      p.VariancePct,
			Comment:          p.Comment,
			ArchivedAt:       archivedAt,
		})
		delete(r.rows, id)
		archived++
	}
	return archived, nil
}

func (r *fakeProjectionRepo) ExpireSweep(ctx context.Context, asOf time.Time, regularDays, mtoDays int, regularComment, mtoComment string) (int64, error) {
	var expired int64
	for id, p := range r.rows {
		if !ExpireEligible(&p, asOf, regularDays, mtoDays) {
			continue
		}
		comment := regularComment
		if p.OrderType == entity.OrderTypeMTO {
			comment = mtoComment
		}
		r.snapshots = append(r.snapshots, entity.ExpiredProjection{
			ID:                 "exp-" + id,
			ProjectionID:       p.ID,
			VendorID:           p.VendorID,
			OrderType:          p.OrderType,
			Year:               p.Year,
			Month:              p.Month,
			ProjectedQty:       p.ProjectedQty,
			ProjectedValue:     p.ProjectedValue,
			ExpiredAt:          asOf,
			ExpiredReason:      comment,
			VerificationStatus: entity.VerificationPending,
		})
		p.MatchStatus = entity.MatchStatusExpired
		p.Comment = comment
		r.rows[id] = p
		expired++
	}
	return expired, nil
}

type fakePOSource struct {
	pos       []entity.IncomingPO
	processed []string
}

func (s *fakePOSource) FindUnprocessed(ctx context.Context, limit int) ([]entity.IncomingPO, error) {
	var out []entity.IncomingPO
	for _, po := range s.pos {
		if po.ProcessedAt == nil {
			out = append(out, po)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakePOSource) FindByPONumber(ctx context.Context, poNumber string) (*entity.IncomingPO, error) {
	for _, po := range s.pos {
		if po.PONumber == poNumber {
			out := po
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakePOSource) MarkProcessed(ctx context.Context, ids []string, at time.Time) error {
	s.processed = append(s.processed, ids...)
	for i := range s.pos {
		for _, id := range ids {
			if s.pos[i].ID == id {
				t := at
				s.pos[i].ProcessedAt = &t
			}
		}
	}
	return nil
}

type fakeLedger struct {
	rows map[string]entity.ExpiredProjection
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[string]entity.ExpiredProjection)}
}

func (l *fakeLedger) FindByID(ctx context.Context, id string) (*entity.ExpiredProjection, error) {
	e, ok := l.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := e
	return &out, nil
}

func (l *fakeLedger) Update(ctx context.Context, e *entity.ExpiredProjection) error {
	if _, ok := l.rows[e.ID]; !ok {
		return repository.ErrNotFound
	}
	l.rows[e.ID] = *e
	return nil
}

type fakeLock struct{}

func (fakeLock) Release(ctx context.Context) error { return nil }

type fakeLocker struct {
	obtained []string
	err      error // forced Obtain failure
}

func (l *fakeLocker) Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (Lock, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.obtained = append(l.obtained, key)
	return fakeLock{}, nil
}
