package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/ametelin/reviewhub/internal/model"
)

// codeAlphabet matches the characters a code can contain. Alphanumeric only,
// so codes survive copy-paste from any mail client.
const codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrCodeMismatch is returned by Verify when the presented code does not
// match the stored hash.
var ErrCodeMismatch = errors.New("auth: confirmation code mismatch")

// CodeService issues and verifies one-time confirmation codes.
//
// Codes are random 16-character strings. Only a bcrypt hash is persisted;
// the plaintext exists just long enough to be emailed. bcrypt here is less
// about brute force (the code is high-entropy and single-use) and more
// about keeping a database dump from leaking currently valid codes.
//
// The cost is injectable so tests don't pay the full hashing price.
type CodeService struct {
	cost int
}

// NewCodeService creates a CodeService with the default bcrypt cost.
func NewCodeService() *CodeService {
	return &CodeService{cost: bcrypt.DefaultCost}
}

// NewCodeServiceForTest creates a CodeService with the given (low) cost.
// Do not use in production.
func NewCodeServiceForTest(cost int) *CodeService {
	return &CodeService{cost: cost}
}

// Issue generates a fresh random code and returns both the plaintext (to be
// emailed) and its bcrypt hash (to be stored). A new code invalidates any
// previously stored one simply by replacing its hash.
func (s *CodeService) Issue() (code, hash string, err error) {
	buf := make([]byte, model.MaxCodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", "", fmt.Errorf("auth: generating confirmation code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	code = string(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return "", "", fmt.Errorf("auth: hashing confirmation code: %w", err)
	}

	return code, string(hashed), nil
}

// Verify checks a presented code against a stored hash. Returns
// ErrCodeMismatch on a wrong code; any other error is an internal failure.
func (s *CodeService) Verify(hash, code string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrCodeMismatch
		}
		return fmt.Errorf("auth: comparing confirmation code: %w", err)
	}
	return nil
}
