package testutil

import (
	"github.com/stretchr/testify/mock"
)

// MockReadinessChecker reports whatever health the test programs into it.
type MockReadinessChecker struct {
	mock.Mock
}

func (m *MockReadinessChecker) Healthy() bool {
	args := m.Called()
	return args.Bool(0)
}
