package users

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("password is empty")

var (
	hashCost = bcrypt.DefaultCost

	dummyOnce sync.Once
	dummyHash []byte
)

// SetHashCost changes the bcrypt cost for new hashes. Out-of-range values are
// ignored.
func SetHashCost(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		hashCost = cost
	}
}

// SetPassword hashes plain and stores the hash on u.
func (u *User) SetPassword(plain string) error {
	if plain == "" {
		return ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	if u == nil || u.PasswordHash == "" {
		// same cost as a wrong password
		_ = bcrypt.CompareHashAndPassword(dummy(), []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// BurnPasswordCheck spends the time of one password comparison. Used when the
// account does not exist.
func BurnPasswordCheck(plain string) {
	var nobody *User
	nobody.CheckPassword(plain)
}

func dummy() []byte {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("lhc-placeholder-password"), hashCost)
	})
	return dummyHash
}
