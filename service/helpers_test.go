package service

import (
	"Formpay/config"
	"Formpay/models"
	"Formpay/pkg/wxpay"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const testAPIKey = "192006250b4c09247ec02edce69f6a2d"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
wechat_pay:
  app_id: wx-app
  app_secret: s3cret
  mch_id: "1900000109"
  api_key: ` + testAPIKey + `
  notify_url: https://example.com/api/v1/pay/notify
notify:
  lookup_attempts: 3
  lookup_backoff_ms: 1
reconcile:
  stale_after_minutes: 10
  concurrency: 4
`))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

// memRepo 内存版 PaymentRepository，条件更新语义与数据库一致
type memRepo struct {
	mu        sync.Mutex
	nextID    uint64
	subs      map[uint64]*models.Submission
	byPayment map[string]uint64
	logs      []*models.PaymentLog
	goods     map[uint64]*models.Goods

	// 前 n 次按单号查询返回未找到，模拟下单事务尚未提交
	hidden      map[string]int
	findCalls   int
	panicOnFind bool
	updateErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{
		subs:      make(map[uint64]*models.Submission),
		byPayment: make(map[string]uint64),
		goods:     make(map[uint64]*models.Goods),
		hidden:    make(map[string]int),
	}
}

func (r *memRepo) addGoods(id, issueID uint64, price string, stock uint32, status int8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goods[id] = &models.Goods{ID: id, IssueID: issueID, Name: fmt.Sprintf("goods-%d", id), Price: decimal.RequireFromString(price), Stock: stock, Status: status}
}

// seed 直接插入一条 submission
func (r *memRepo) seed(paymentID, amount string, status models.SubmissionStatus, createdAt time.Time, expiredAt time.Time) *models.Submission {
	sub := &models.Submission{
		PaymentID: paymentID,
		IssueID:   1,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "CNY",
		OpenID:    "o-payer",
		Status:    status,
		CreatedAt: createdAt,
		ExpiredAt: &expiredAt,
	}
	if err := r.CreateSubmission(context.Background(), sub); err != nil {
		panic(err)
	}
	return sub
}

func (r *memRepo) get(paymentID string) *models.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPayment[paymentID]
	if !ok {
		return nil
	}
	cp := *r.subs[id]
	return &cp
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *memRepo) logsOf(submissionID uint64, typ models.PaymentLogType) []*models.PaymentLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.PaymentLog, 0)
	for _, l := range r.logs {
		if l.SubmissionID == submissionID && (typ == "" || l.Type == typ) {
			out = append(out, l)
		}
	}
	return out
}

func (r *memRepo) CreateSubmission(_ context.Context, sub *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPayment[sub.PaymentID]; ok {
		return fmt.Errorf("duplicate payment_id %s", sub.PaymentID)
	}
	r.nextID++
	sub.ID = r.nextID
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	cp := *sub
	r.subs[sub.ID] = &cp
	r.byPayment[sub.PaymentID] = sub.ID
	return nil
}

func (r *memRepo) FindSubmissionByPaymentID(_ context.Context, paymentID string) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.panicOnFind {
		panic("boom")
	}
	if n := r.hidden[paymentID]; n > 0 {
		r.hidden[paymentID] = n - 1
		return nil, gorm.ErrRecordNotFound
	}
	id, ok := r.byPayment[paymentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r.subs[id]
	return &cp, nil
}

func (r *memRepo) FindSubmissionByID(_ context.Context, id uint64) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *memRepo) UpdateSubmission(_ context.Context, id uint64, from []models.SubmissionStatus, patch map[string]any, log *models.PaymentLog) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return false, r.updateErr
	}
	sub, ok := r.subs[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range from {
		if sub.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	for k, v := range patch {
		switch k {
		case "status":
			sub.Status = v.(models.SubmissionStatus)
		case "trade_no":
			sub.TradeNo = v.(string)
		case "paid_at":
			t := v.(time.Time)
			sub.PaidAt = &t
		case "wx_pay_info":
			sub.WxPayInfo = v.(datatypes.JSON)
		default:
			panic("unexpected patch field " + k)
		}
	}
	if log != nil {
		log.SubmissionID = id
		r.appendLocked(log)
	}
	return true, nil
}

func (r *memRepo) appendLocked(log *models.PaymentLog) bool {
	for _, l := range r.logs {
		if l.SubmissionID == log.SubmissionID && l.DedupKey == log.DedupKey {
			return false
		}
	}
	cp := *log
	r.logs = append(r.logs, &cp)
	return true
}

func (r *memRepo) AppendPaymentLog(_ context.Context, log *models.PaymentLog) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendLocked(log), nil
}

func (r *memRepo) ListPaymentLogs(_ context.Context, submissionID uint64) ([]*models.PaymentLog, error) {
	return r.logsOf(submissionID, ""), nil
}

func (r *memRepo) FindGoodsByIDs(_ context.Context, issueID uint64, ids []uint64) ([]*models.Goods, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Goods, 0, len(ids))
	for _, id := range ids {
		if g, ok := r.goods[id]; ok && g.IssueID == issueID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) ListStalePending(_ context.Context, before time.Time, limit int) ([]*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Submission, 0)
	for id := uint64(1); id <= r.nextID && len(out) < limit; id++ {
		sub, ok := r.subs[id]
		if ok && sub.Status == models.SubmissionPending && sub.CreatedAt.Before(before) {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) DeleteSubmission(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil
	}
	delete(r.byPayment, sub.PaymentID)
	delete(r.subs, id)
	kept := r.logs[:0]
	for _, l := range r.logs {
		if l.SubmissionID != id {
			kept = append(kept, l)
		}
	}
	r.logs = kept
	return nil
}

type fakeGateway struct {
	mu      sync.Mutex
	prepays []*PrepayOrder
	closed  []string

	PrepayFunc func(ctx context.Context, order *PrepayOrder) (*PrepayResult, error)
	QueryFunc  func(ctx context.Context, paymentID string) (*GatewayTransaction, error)
	CloseFunc  func(ctx context.Context, paymentID string) error
}

func (g *fakeGateway) Prepay(ctx context.Context, order *PrepayOrder) (*PrepayResult, error) {
	g.mu.Lock()
	g.prepays = append(g.prepays, order)
	g.mu.Unlock()
	return g.PrepayFunc(ctx, order)
}

func (g *fakeGateway) Query(ctx context.Context, paymentID string) (*GatewayTransaction, error) {
	return g.QueryFunc(ctx, paymentID)
}

func (g *fakeGateway) Close(ctx context.Context, paymentID string) error {
	g.mu.Lock()
	g.closed = append(g.closed, paymentID)
	g.mu.Unlock()
	if g.CloseFunc == nil {
		return nil
	}
	return g.CloseFunc(ctx, paymentID)
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// fakeStore 内存版 CredentialStore，可注入错误
type fakeStore struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fakeStore) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *fakeStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	delete(s.ttls, key)
	return nil
}

func (s *fakeStore) lookup(key string) (string, time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, s.ttls[key], ok
}

func signedNotification(t *testing.T, p wxpay.Params) []byte {
	t.Helper()
	p[wxpay.FieldSign] = wxpay.Sign(p, testAPIKey, wxpay.SignTypeMD5)
	b, err := p.XML()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func successNotification(paymentID, transactionID, totalFee string) wxpay.Params {
	return wxpay.Params{
		"return_code":    "SUCCESS",
		"result_code":    "SUCCESS",
		"appid":          "wx-app",
		"mch_id":         "1900000109",
		"openid":         "o-payer",
		"out_trade_no":   paymentID,
		"transaction_id": transactionID,
		"total_fee":      totalFee,
		"time_end":       "20240309101500",
		"nonce_str":      wxpay.NonceStr(),
	}
}
