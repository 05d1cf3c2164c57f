package stubapi

import (
	"fmt"
	"strings"
	"sync"

	"github.com/okian/vitaldash/internal/domain/model"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	user model.User
	hash []byte
}

// userStore keeps accounts in memory, keyed by lower-cased email.
type userStore struct {
	mu     sync.RWMutex
	byMail map[string]*account
	nextID int64
}

func newUserStore() *userStore {
	return &userStore{byMail: make(map[string]*account), nextID: 1}
}

func (u *userStore) register(reg model.Registration) (model.User, error) {
	key := strings.ToLower(strings.TrimSpace(reg.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byMail[key]; ok {
		return model.User{}, ErrEmailTaken
	}
	user := reg.User()
	user.ID = u.nextID
	user.Email = strings.TrimSpace(reg.Email)
	u.nextID++
	u.byMail[key] = &account{user: user, hash: hash}
	return user, nil
}

func (u *userStore) authenticate(email, password string) (model.User, error) {
	u.mu.RLock()
	acc, ok := u.byMail[strings.ToLower(strings.TrimSpace(email))]
	u.mu.RUnlock()
	if !ok {
		return model.User{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return model.User{}, ErrBadCredentials
	}
	return acc.user, nil
}

func (u *userStore) lookup(email string) (model.User, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	acc, ok := u.byMail[strings.ToLower(email)]
	if !ok {
		return model.User{}, false
	}
	return acc.user, true
}
