package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) ListInFlight(ctx context.Context, chain domain.Chain, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.Chain != chain {
			continue
		}
		switch p.Status {
		case domain.PaymentStatusPending, domain.PaymentStatusDetected, domain.PaymentStatusConfirming:
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *inMemoryPaymentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return false, fmt.Errorf("payment not found")
	}
	if !domain.CanTransition(from, to) {
		return false, nil
	}
	if p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (r *inMemoryPaymentRepo) UpdateDeposit(ctx context.Context, id uuid.UUID, receivedAmount, txHash string, detectedBlock *uint64, confirmations uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return fmt.Errorf("payment not found")
	}
	p.ReceivedAmount = receivedAmount
	p.TxHash = txHash
	p.DetectedBlock = detectedBlock
	p.Confirmations = confirmations
	return nil
}

func (r *inMemoryPaymentRepo) UpdateConfirmations(ctx context.Context, id uuid.UUID, confirmations uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return fmt.Errorf("payment not found")
	}
	p.Confirmations = confirmations
	return nil
}

func (r *inMemoryPaymentRepo) RecordForwardResult(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, forwardTxHash, commission, merchant string, failureReason *string, forwardedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return fmt.Errorf("payment not found")
	}
	if p.Status != domain.PaymentStatusForwarding {
		return fmt.Errorf("payment %s is not forwarding", id)
	}
	p.Status = status
	p.ForwardTxHash = forwardTxHash
	p.CommissionAmount = commission
	p.MerchantAmount = merchant
	p.FailureReason = failureReason
	p.ForwardedAt = &forwardedAt
	return nil
}

// --- In-Memory Address Repo ---

type inMemoryAddressRepo struct {
	mu        sync.Mutex
	addresses map[uuid.UUID]*domain.PaymentAddress // by payment ID
	keys      map[uuid.UUID]*domain.EncryptedKeyRecord
	counters  map[domain.Chain]uint32
}

func newInMemoryAddressRepo() *inMemoryAddressRepo {
	return &inMemoryAddressRepo{
		addresses: make(map[uuid.UUID]*domain.PaymentAddress),
		keys:      make(map[uuid.UUID]*domain.EncryptedKeyRecord),
		counters:  make(map[domain.Chain]uint32),
	}
}

func (r *inMemoryAddressRepo) CreateWithKey(ctx context.Context, tx pgx.Tx, addr *domain.PaymentAddress, key *domain.EncryptedKeyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, k := *addr, *key
	r.addresses[addr.PaymentID] = &a
	r.keys[key.AddressID] = &k
	return nil
}

func (r *inMemoryAddressRepo) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.addresses[paymentID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAddressRepo) NextDerivationIndex(ctx context.Context, tx pgx.Tx, chain domain.Chain) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.counters[chain]
	r.counters[chain] = idx + 1
	return idx, nil
}

func (r *inMemoryAddressRepo) GetKeyRecord(ctx context.Context, addressID uuid.UUID) (*domain.EncryptedKeyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[addressID]
	if !ok {
		return nil, nil
	}
	cp := *k
	return &cp, nil
}

// --- In-Memory Business Repo ---

type inMemoryBusinessRepo struct {
	mu         sync.RWMutex
	businesses map[uuid.UUID]*domain.Business
}

func newInMemoryBusinessRepo() *inMemoryBusinessRepo {
	return &inMemoryBusinessRepo{businesses: make(map[uuid.UUID]*domain.Business)}
}

func (r *inMemoryBusinessRepo) put(b *domain.Business) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.businesses[b.ID] = b
}

func (r *inMemoryBusinessRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.businesses[id]
	if !ok {
		return nil, nil
	}
	return b, nil
}

// --- In-Memory Webhook Attempt Repo ---

type inMemoryAttemptRepo struct {
	mu       sync.Mutex
	attempts []domain.WebhookAttempt
}

func newInMemoryAttemptRepo() *inMemoryAttemptRepo {
	return &inMemoryAttemptRepo{}
}

func (r *inMemoryAttemptRepo) Append(ctx context.Context, a *domain.WebhookAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *a)
	return nil
}

func (r *inMemoryAttemptRepo) ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.WebhookAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WebhookAttempt
	for _, a := range r.attempts {
		if a.PaymentID == paymentID {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
