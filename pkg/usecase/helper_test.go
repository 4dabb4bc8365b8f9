package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/repository/memory"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
	"github.com/secmon-lab/actiontrail/pkg/utils/clock"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	uc    *usecase.UseCases
	repo  *memory.Memory
	clock *clock.Mock
	admin *model.User
}

func testSettings() usecase.Settings {
	s := usecase.DefaultSettings()
	s.PasswordCost = bcrypt.MinCost
	return s
}

func newFixture(t *testing.T, opts ...usecase.Option) *fixture {
	t.Helper()

	repo := memory.New()
	mock := clock.NewMock(testNow)
	opts = append([]usecase.Option{
		usecase.WithClock(mock.Clock()),
		usecase.WithSettings(testSettings()),
	}, opts...)
	uc := usecase.New(repo, opts...)

	admin, err := uc.User.Create(context.Background(), usecase.CreateUserInput{
		Username: "root",
		Password: "rootpass",
		Role:     "admin",
	})
	gt.NoError(t, err).Required()

	return &fixture{uc: uc, repo: repo, clock: mock, admin: admin}
}

func (f *fixture) createUser(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := f.uc.User.Create(context.Background(), usecase.CreateUserInput{
		Username: name,
		Password: name + "-pass",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, u.Role).Equal(types.RoleUser)
	return u
}

func newEmptyUseCases(t *testing.T) *usecase.UseCases {
	t.Helper()
	return usecase.New(memory.New(),
		usecase.WithClock(clock.Fixed(testNow)),
		usecase.WithSettings(testSettings()),
	)
}
