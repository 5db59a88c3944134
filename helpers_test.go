package authcore

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/refresh"
)

type mockAccountProvider struct {
	mu         sync.Mutex
	byID       map[string]Account
	byUsername map[string]string
	byEmail    map[string]string

	createErr error
	updateErr error

	createCalls         int
	markVerifiedCalls   int
	updatePasswordCalls int
}

func newMockProvider() *mockAccountProvider {
	return &mockAccountProvider{
		byID:       make(map[string]Account),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (m *mockAccountProvider) put(account Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[account.ID] = account
	m.byUsername[account.Username] = account.ID
	m.byEmail[account.Email] = account.ID
}

func (m *mockAccountProvider) GetByUsername(_ context.Context, username string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byUsername[username]
	if !ok {
		return Account{}, ErrProviderAccountNotFound
	}
	return m.byID[id], nil
}

func (m *mockAccountProvider) GetByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return Account{}, ErrProviderAccountNotFound
	}
	return m.byID[id], nil
}

func (m *mockAccountProvider) Create(_ context.Context, input CreateAccountInput) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return Account{}, m.createErr
	}
	if _, exists := m.byUsername[input.Username]; exists {
		return Account{}, ErrProviderDuplicateAccount
	}
	if _, exists := m.byEmail[input.Email]; exists {
		return Account{}, ErrProviderDuplicateAccount
	}

	account := Account{
		ID:           input.ID,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		Verified:     input.Verified,
		CreatedAt:    time.Now(),
	}
	m.byID[account.ID] = account
	m.byUsername[account.Username] = account.ID
	m.byEmail[account.Email] = account.ID
	return account, nil
}

func (m *mockAccountProvider) UpdatePasswordHash(_ context.Context, username string, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++

	if m.updateErr != nil {
		return m.updateErr
	}

	id, ok := m.byUsername[username]
	if !ok {
		return ErrProviderAccountNotFound
	}
	account := m.byID[id]
	account.PasswordHash = newHash
	m.byID[id] = account
	return nil
}

func (m *mockAccountProvider) MarkVerified(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markVerifiedCalls++

	id, ok := m.byEmail[email]
	if !ok {
		return Account{}, ErrProviderAccountNotFound
	}
	account := m.byID[id]
	if account.Verified {
		return Account{}, ErrProviderAlreadyVerified
	}
	account.Verified = true
	m.byID[id] = account
	return account, nil
}

type recordedMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu      sync.Mutex
	mails   []recordedMail
	failErr error
}

func (m *recordingMailer) Deliver(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return m.failErr
	}
	m.mails = append(m.mails, recordedMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mails)
}

func (m *recordingMailer) last(t *testing.T) recordedMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.mails) == 0 {
		t.Fatal("no mail delivered")
	}
	return m.mails[len(m.mails)-1]
}

var mailCodePattern = regexp.MustCompile(`>(\d{4,10})<`)

// lastCode extracts the one-time code from the most recent delivery.
func (m *recordingMailer) lastCode(t *testing.T) string {
	t.Helper()

	match := mailCodePattern.FindStringSubmatch(m.last(t).Body)
	if match == nil {
		t.Fatal("no code found in mail body")
	}
	return match[1]
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func newTestHasher(t *testing.T) *password.Hasher {
	t.Helper()

	// Minimum-cost parameters keep hashing fast in tests.
	h, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func newTestJWT(t *testing.T) *jwt.Manager {
	t.Helper()

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     30 * time.Minute,
		RefreshTTL:    2 * time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("test-signing-secret-0123456789"),
	})
	if err != nil {
		t.Fatalf("jwt.NewManager failed: %v", err)
	}
	return jm
}

func newTestEngine(t *testing.T, rdb *redis.Client, provider AccountProvider, mailer Mailer) *Engine {
	t.Helper()

	cfg := defaultConfig()
	return &Engine{
		config:          cfg,
		codes:           otp.NewLedger(rdb, cfg.Redis.OTPPrefix),
		refreshStore:    refresh.NewStore(rdb, cfg.Redis.RefreshPrefix),
		metrics:         NewMetrics(cfg.Metrics),
		passwordHash:    newTestHasher(t),
		jwtManager:      newTestJWT(t),
		accountProvider: provider,
		mailer:          mailer,
	}
}

// seedAccount hashes password and stores a ready-made account in the provider.
func seedAccount(t *testing.T, engine *Engine, provider *mockAccountProvider, username, email, pass string, verified bool) Account {
	t.Helper()

	hash, err := engine.passwordHash.Hash(pass)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	account := Account{
		ID:           "acct-" + username,
		FirstName:    "Test",
		LastName:     "Account",
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Verified:     verified,
		CreatedAt:    time.Now(),
	}
	provider.put(account)
	return account
}
