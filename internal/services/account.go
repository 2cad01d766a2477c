package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maxldruck/printcalc/internal/auth"
	"github.com/maxldruck/printcalc/internal/draft"
	"github.com/maxldruck/printcalc/internal/ledger"
	"github.com/maxldruck/printcalc/internal/mq"
	"github.com/maxldruck/printcalc/internal/storage"
	"github.com/maxldruck/printcalc/internal/store"
	"github.com/maxldruck/printcalc/types"
	"go.uber.org/zap"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (types.Account, error)
	GetByUsername(ctx context.Context, username string) (types.Account, error)
	List(ctx context.Context) ([]types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	SetRole(ctx context.Context, id int64, role string) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) error
}

// AccountService encapsulates registration, login and account removal.
// Every account owns exactly one ledger, provisioned on registration.
type AccountService struct {
	repo    AccountRepository
	ledgers *ledger.Registry
	hasher  *auth.Hasher
	drafts  draft.Store
	archive *storage.Storage
	events  *mq.Publisher
	logger  *zap.Logger
}

func NewAccountService(
	repo AccountRepository,
	ledgers *ledger.Registry,
	hasher *auth.Hasher,
	drafts draft.Store,
	archive *storage.Storage,
	events *mq.Publisher,
	logger *zap.Logger,
) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		repo:    repo,
		ledgers: ledgers,
		hasher:  hasher,
		drafts:  drafts,
		archive: archive,
		events:  events,
		logger:  logger,
	}
}

// Register creates an account and provisions its empty ledger. An existing
// username, or one that maps to another account's ledger, is rejected
// without touching the stored account.
func (s *AccountService) Register(ctx context.Context, username, password string) (types.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.Account{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	key, err := ledger.KeyFor(username)
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: username needs at least one letter or digit", ErrInvalidInput)
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.Account{}, ErrDuplicateName
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Account{}, err
	}
	if err := s.checkKeyFree(ctx, key); err != nil {
		return types.Account{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return types.Account{}, err
	}

	account, err := s.repo.Create(ctx, types.Account{
		Username:     username,
		Role:         types.RoleUser,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Account{}, ErrDuplicateName
		}
		return types.Account{}, err
	}

	if err := s.ledgers.Provision(ctx, key); err != nil {
		if delErr := s.repo.Delete(ctx, account.ID); delErr != nil {
			s.logger.Error("roll back account after ledger failure",
				zap.String("account", username),
				zap.Error(delErr),
			)
		}
		return types.Account{}, fmt.Errorf("provision ledger: %w", err)
	}

	s.logger.Info("account registered", zap.String("account", username), zap.String("ledger", key.String()))
	s.events.Emit(ctx, mq.Event{Type: mq.EventAccountRegistered, Account: username})
	return account, nil
}

// Authenticate checks the credentials and makes sure the account's ledger
// exists and is on the current schema.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (types.Account, error) {
	account, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, ErrInvalidCredentials
		}
		return types.Account{}, err
	}
	if !auth.Verify(password, account.PasswordHash) {
		return types.Account{}, ErrInvalidCredentials
	}

	key, err := LedgerKey(account)
	if err != nil {
		return types.Account{}, err
	}
	if err := s.ledgers.Provision(ctx, key); err != nil {
		return types.Account{}, fmt.Errorf("provision ledger: %w", err)
	}
	return account, nil
}

func (s *AccountService) GetByID(ctx context.Context, id int64) (types.Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AccountService) GetByUsername(ctx context.Context, username string) (types.Account, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *AccountService) List(ctx context.Context) ([]types.Account, error) {
	return s.repo.List(ctx)
}

// SetRole changes the role of the named account.
func (s *AccountService) SetRole(ctx context.Context, username, role string) (types.Account, error) {
	if role != types.RoleUser && role != types.RoleAdmin {
		return types.Account{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return types.Account{}, err
	}
	if err := s.repo.SetRole(ctx, account.ID, role); err != nil {
		return types.Account{}, err
	}
	account.Role = role
	return account, nil
}

// ChangePassword replaces the account's verifier.
func (s *AccountService) ChangePassword(ctx context.Context, id int64, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, id, hash)
}

// Delete removes the account and irreversibly destroys its ledger, draft
// and archived quotes. Other accounts are not affected.
func (s *AccountService) Delete(ctx context.Context, username string) error {
	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	key, err := LedgerKey(account)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, account.ID); err != nil {
		return err
	}
	if err := s.ledgers.Destroy(key); err != nil {
		return fmt.Errorf("destroy ledger: %w", err)
	}
	if s.drafts != nil {
		if err := s.drafts.Delete(ctx, draftOwner(account)); err != nil {
			s.logger.Warn("discard draft of deleted account", zap.String("account", username), zap.Error(err))
		}
	}
	if s.archive != nil {
		removed, err := s.archive.DeletePrefix(ctx, storage.QuotePrefix(key.String()))
		if err != nil {
			s.logger.Warn("remove archived quotes", zap.String("account", username), zap.Error(err))
		} else if removed > 0 {
			s.logger.Info("archived quotes removed", zap.String("account", username), zap.Int("count", removed))
		}
	}

	s.logger.Info("account deleted", zap.String("account", username))
	s.events.Emit(ctx, mq.Event{Type: mq.EventAccountDeleted, Account: username})
	return nil
}

// DeleteAs deletes username on behalf of actor. Only admins may delete
// accounts other than their own.
func (s *AccountService) DeleteAs(ctx context.Context, actor types.Account, username string) error {
	if !actor.IsAdmin() && actor.Username != username {
		return ErrForbidden
	}
	return s.Delete(ctx, username)
}

// checkKeyFree rejects a ledger key already used by another account.
// A ledger file without an owner is adopted.
func (s *AccountService) checkKeyFree(ctx context.Context, key ledger.Key) error {
	exists, err := s.ledgers.Exists(key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, other := range accounts {
		if otherKey, err := LedgerKey(other); err == nil && otherKey == key {
			return ErrDuplicateName
		}
	}
	s.logger.Info("adopting unowned ledger", zap.String("ledger", key.String()))
	return nil
}

// LedgerKey returns the key of the ledger owned by account.
func LedgerKey(account types.Account) (ledger.Key, error) {
	return ledger.KeyFor(account.Username)
}

func draftOwner(account types.Account) string {
	return strconv.FormatInt(account.ID, 10)
}
