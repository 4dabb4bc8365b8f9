package usecase

import (
	"time"

	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/utils/clock"
)

// Settings are the policy knobs loaded from the application config.
type Settings struct {
	Location          *time.Location
	MaxActiveUsers    int
	MinPasswordLength int
	PasswordCost      int
	DefaultPageSize   int
	MaxPageSize       int
	DefaultFeedLimit  int
	MaxFeedLimit      int
}

// DefaultSettings returns the stock policy: UTC year boundary, 30 active
// users, 6-character passwords, 10/100 page size and 20/50 feed size.
func DefaultSettings() Settings {
	return Settings{
		Location:          time.UTC,
		MaxActiveUsers:    model.DefaultMaxActiveUsers,
		MinPasswordLength: model.DefaultMinPasswordLength,
		DefaultPageSize:   10,
		MaxPageSize:       100,
		DefaultFeedLimit:  20,
		MaxFeedLimit:      50,
	}
}

type UseCases struct {
	repo     interfaces.Repository
	clock    clock.Clock
	settings Settings
	notifier PlanNotifier
	auth     *AuthConfig

	Action *ActionUseCase
	User   *UserUseCase
	Plan   *PlanUseCase
	Public *PublicUseCase
	Auth   *AuthUseCase
}

type Option func(*UseCases)

func WithClock(c clock.Clock) Option {
	return func(uc *UseCases) {
		uc.clock = c
	}
}

func WithSettings(s Settings) Option {
	return func(uc *UseCases) {
		uc.settings = s
	}
}

// WithNotifier enables plan broadcast notifications
func WithNotifier(n PlanNotifier) Option {
	return func(uc *UseCases) {
		uc.notifier = n
	}
}

// WithAuth enables token issuing. Without it UseCases.Auth is nil.
func WithAuth(cfg AuthConfig) Option {
	return func(uc *UseCases) {
		uc.auth = &cfg
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:     repo,
		clock:    clock.Now,
		settings: DefaultSettings(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	window := model.YearWindow{Location: uc.settings.Location}

	uc.Action = &ActionUseCase{repo: repo, clock: uc.clock, window: window, settings: uc.settings}
	uc.User = &UserUseCase{repo: repo, clock: uc.clock, window: window, settings: uc.settings}
	uc.Plan = &PlanUseCase{repo: repo, clock: uc.clock, settings: uc.settings, notifier: uc.notifier}
	uc.Public = &PublicUseCase{repo: repo, clock: uc.clock, window: window, settings: uc.settings}
	if uc.auth != nil {
		uc.Auth = newAuthUseCase(repo, uc.User, uc.clock, *uc.auth)
	}

	return uc
}

// Window exposes the year policy used by the use cases
func (uc *UseCases) Window() model.YearWindow {
	return model.YearWindow{Location: uc.settings.Location}
}

// Settings returns the active policy
func (uc *UseCases) Settings() Settings {
	return uc.settings
}

// Now returns the injected clock's time
func (uc *UseCases) Now() time.Time {
	return uc.clock()
}
