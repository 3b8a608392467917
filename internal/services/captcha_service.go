package services

import (
	"fmt"
	"math/rand/v2"
)

// CaptchaService generates the arithmetic question shown on the sign-up form.
type CaptchaService struct{}

func NewCaptchaService() *CaptchaService {
	return &CaptchaService{}
}

// GenerateMathProblem returns a display string (e.g. "3 + 5") and the integer answer.
// Usage: Store answer in session, display question to user.
func (s *CaptchaService) GenerateMathProblem() (string, int) {
	a := rand.IntN(10)
	b := rand.IntN(10)

	if rand.IntN(2) == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	// 保证减法结果非负
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}
