package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inlines/g-stx-api/account/domain"
)

// Login failure reasons, usados como label de métrica.
const (
	ReasonInvalidPassword = "invalid_password"
	ReasonUserNotFound    = "user_not_found"
)

// AuthObserver recebe os eventos de autenticação.
type AuthObserver interface {
	LoginResult(success bool, reason string)
	Registered()
}

type Service struct {
	repo     domain.Repository
	hasher   domain.PasswordHasher
	tokens   domain.TokenIssuer
	observer AuthObserver
	logger   *slog.Logger

	dummyOnce sync.Once
	dummy     string
}

type Option func(*Service)

func WithObserver(o AuthObserver) Option {
	return func(s *Service) { s.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo domain.Repository, hasher domain.PasswordHasher, tokens domain.TokenIssuer, opts ...Option) *Service {
	s := &Service{repo: repo, hasher: hasher, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Service) Register(ctx context.Context, login, password string) error {
	if !domain.ValidLogin(login) {
		return domain.ErrInvalidLogin
	}
	if password == "" {
		return domain.ErrEmptyPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.CreateUser(ctx, domain.User{Login: login, PasswordHash: hash}); err != nil {
		if !errors.Is(err, domain.ErrUserExists) {
			s.logger.ErrorContext(ctx, "register failed", "login", login, "error", err)
		}
		return err
	}

	if s.observer != nil {
		s.observer.Registered()
	}
	s.logger.InfoContext(ctx, "user registered", "login", login)
	return nil
}

// Login devolve um token para credenciais válidas e ErrInvalidCredentials
// tanto para login inexistente quanto para senha errada.
func (s *Service) Login(ctx context.Context, login, password string) (string, error) {
	u, err := s.repo.UserByLogin(ctx, login)
	if errors.Is(err, domain.ErrNotFound) {
		// Mesmo custo de verificação do caminho com usuário existente.
		_, _ = s.hasher.Verify(password, s.dummyHash())
		s.loginFailed(ctx, login, ReasonUserNotFound)
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "login lookup failed", "login", login, "error", err)
		return "", err
	}

	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		s.logger.WarnContext(ctx, "stored password hash unreadable", "login", login, "error", err)
	}
	if !ok {
		s.loginFailed(ctx, login, ReasonInvalidPassword)
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.Login)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	if s.observer != nil {
		s.observer.LoginResult(true, "")
	}
	return token, nil
}

// dummyHash é gerado uma vez pelo próprio hasher, com os mesmos parâmetros
// dos hashes armazenados.
func (s *Service) dummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("gstx-dummy-password")
		if err != nil {
			s.logger.Warn("dummy password hash failed", "error", err)
			return
		}
		s.dummy = h
	})
	return s.dummy
}

func (s *Service) loginFailed(ctx context.Context, login, reason string) {
	if s.observer != nil {
		s.observer.LoginResult(false, reason)
	}
	s.logger.InfoContext(ctx, "login failed", "login", login, "reason", reason)
}

func (s *Service) Releases(ctx context.Context, kind domain.ListKind, login string) ([]domain.ReleaseItem, error) {
	items, err := s.repo.Releases(ctx, kind, login)
	if err != nil {
		s.logger.ErrorContext(ctx, "list releases failed", "kind", kind, "login", login, "error", err)
		return nil, err
	}
	return items, nil
}

func (s *Service) AddRelease(ctx context.Context, kind domain.ListKind, login string, releaseID int32) error {
	if err := s.repo.AddRelease(ctx, kind, login, releaseID); err != nil {
		s.logger.ErrorContext(ctx, "add release failed", "kind", kind, "login", login, "release_id", releaseID, "error", err)
		return err
	}
	return nil
}

func (s *Service) RemoveRelease(ctx context.Context, kind domain.ListKind, login string, releaseID int32) error {
	if err := s.repo.RemoveRelease(ctx, kind, login, releaseID); err != nil {
		s.logger.ErrorContext(ctx, "remove release failed", "kind", kind, "login", login, "release_id", releaseID, "error", err)
		return err
	}
	return nil
}

// Collectors lista os outros colecionadores, sem o próprio viewer.
func (s *Service) Collectors(ctx context.Context, viewer string) ([]domain.Collector, error) {
	out, err := s.repo.Collectors(ctx, viewer)
	if err != nil {
		s.logger.ErrorContext(ctx, "list collectors failed", "error", err)
		return nil, err
	}
	return out, nil
}
