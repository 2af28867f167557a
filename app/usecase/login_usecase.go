package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tenant-service/app/domain"
	"tenant-service/app/port"
)

// LoginUseCase resolves a login identity to exactly one account. When an
// email maps to several accounts whose passwords all validate, it issues a
// time-boxed, single-use challenge instead of guessing.
type LoginUseCase struct {
	accounts     port.AccountRepository
	challenges   port.ChallengeRepository
	tokens       port.TokenIssuer
	challengeTTL time.Duration
	logger       *slog.Logger
}

// NewLoginUseCase creates a new LoginUseCase instance
func NewLoginUseCase(
	accounts port.AccountRepository,
	challenges port.ChallengeRepository,
	tokens port.TokenIssuer,
	challengeTTL time.Duration,
	logger *slog.Logger,
) port.LoginUsecase {
	return &LoginUseCase{
		accounts:     accounts,
		challenges:   challenges,
		tokens:       tokens,
		challengeTTL: challengeTTL,
		logger:       logger.With("component", "login_usecase"),
	}
}

// Init validates the password against every active account sharing the
// normalized email. The response never reveals which specific account's
// credential check failed; the caller only learns what it proved by
// presenting a correct password.
func (uc *LoginUseCase) Init(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	candidates, err := uc.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate accounts: %w", err)
	}

	var valid []*domain.Account
	for _, account := range candidates {
		if account.Status != domain.AccountStatusActive {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) == nil {
			valid = append(valid, account)
		}
	}

	switch len(valid) {
	case 0:
		uc.logger.Info("login rejected", "email", domain.NormalizeEmail(email))
		return nil, domain.ErrInvalidCredentials

	case 1:
		issued, err := uc.tokens.Issue(valid[0].Snapshot())
		if err != nil {
			return nil, err
		}
		uc.logger.Info("login succeeded", "account_id", valid[0].ID)
		return &domain.LoginResult{Token: issued}, nil

	default:
		return uc.createChallenge(ctx, email, valid)
	}
}

// createChallenge records a disambiguation challenge and returns the stable,
// id-ascending candidate list.
func (uc *LoginUseCase) createChallenge(ctx context.Context, email string, valid []*domain.Account) (*domain.LoginResult, error) {
	ids := make([]int64, 0, len(valid))
	names := make(map[int64]string, len(valid))
	for _, account := range valid {
		ids = append(ids, account.ID)
		names[account.ID] = account.DisplayName
	}

	challenge, err := domain.NewLoginChallenge(email, ids, uc.challengeTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to build challenge: %w", err)
	}

	if err := uc.challenges.Create(ctx, challenge); err != nil {
		return nil, err
	}

	candidates := make([]domain.ChallengeCandidate, 0, len(challenge.CandidateAccountIDs))
	for _, id := range challenge.CandidateAccountIDs {
		candidates = append(candidates, domain.ChallengeCandidate{
			AccountID:   id,
			DisplayName: names[id],
		})
	}

	uc.logger.Info("login requires disambiguation",
		"challenge_id", challenge.ID,
		"candidates", len(candidates))

	return &domain.LoginResult{
		ChallengeID:        &challenge.ID,
		ChallengeExpiresAt: &challenge.ExpiresAt,
		Candidates:         candidates,
	}, nil
}

// Confirm redeems a challenge for the chosen account. Single redemption is
// enforced at the repository: a second confirm with the same id always
// fails, even when it races the first.
func (uc *LoginUseCase) Confirm(ctx context.Context, challengeID uuid.UUID, accountID int64) (*domain.IssuedToken, error) {
	challenge, err := uc.challenges.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := challenge.Redeem(accountID, now); err != nil {
		return nil, err
	}

	if err := uc.challenges.MarkUsed(ctx, challengeID, now); err != nil {
		return nil, err
	}

	snapshot, err := uc.accounts.GetSnapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}

	issued, err := uc.tokens.Issue(snapshot)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("challenge confirmed", "challenge_id", challengeID, "account_id", accountID)
	return issued, nil
}
