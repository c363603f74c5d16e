package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fr0stylo/shoptag/internal/tagging"
)

// MockTagResolver is a mock type for the TagResolver type
type MockTagResolver struct {
	mock.Mock
}

type MockTagResolver_Expecter struct {
	mock *mock.Mock
}

func (_m *MockTagResolver) EXPECT() *MockTagResolver_Expecter {
	return &MockTagResolver_Expecter{mock: &_m.Mock}
}

// Invalidate provides a mock function with given fields: ctx, spec
func (_m *MockTagResolver) Invalidate(ctx context.Context, spec tagging.Spec) {
	_m.Called(ctx, spec)
}

// MockTagResolver_Invalidate_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Invalidate'
type MockTagResolver_Invalidate_Call struct {
	*mock.Call
}

// Invalidate is a helper method to define mock.On call
//   - ctx context.Context
//   - spec tagging.Spec
func (_e *MockTagResolver_Expecter) Invalidate(ctx interface{}, spec interface{}) *MockTagResolver_Invalidate_Call {
	return &MockTagResolver_Invalidate_Call{Call: _e.mock.On("Invalidate", ctx, spec)}
}

func (_c *MockTagResolver_Invalidate_Call) Run(run func(ctx context.Context, spec tagging.Spec)) *MockTagResolver_Invalidate_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(tagging.Spec))
	})
	return _c
}

func (_c *MockTagResolver_Invalidate_Call) Return() *MockTagResolver_Invalidate_Call {
	_c.Call.Return()
	return _c
}

// Resolve provides a mock function with given fields: ctx, spec
func (_m *MockTagResolver) Resolve(ctx context.Context, spec tagging.Spec) (int64, error) {
	ret := _m.Called(ctx, spec)

	if len(ret) == 0 {
		panic("no return value specified for Resolve")
	}

	var r0 int64
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, tagging.Spec) (int64, error)); ok {
		return rf(ctx, spec)
	}
	if rf, ok := ret.Get(0).(func(context.Context, tagging.Spec) int64); ok {
		r0 = rf(ctx, spec)
	} else {
		r0 = ret.Get(0).(int64)
	}

	if rf, ok := ret.Get(1).(func(context.Context, tagging.Spec) error); ok {
		r1 = rf(ctx, spec)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockTagResolver_Resolve_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Resolve'
type MockTagResolver_Resolve_Call struct {
	*mock.Call
}

// Resolve is a helper method to define mock.On call
//   - ctx context.Context
//   - spec tagging.Spec
func (_e *MockTagResolver_Expecter) Resolve(ctx interface{}, spec interface{}) *MockTagResolver_Resolve_Call {
	return &MockTagResolver_Resolve_Call{Call: _e.mock.On("Resolve", ctx, spec)}
}

func (_c *MockTagResolver_Resolve_Call) Run(run func(ctx context.Context, spec tagging.Spec)) *MockTagResolver_Resolve_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(tagging.Spec))
	})
	return _c
}

func (_c *MockTagResolver_Resolve_Call) Return(_a0 int64, _a1 error) *MockTagResolver_Resolve_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockTagResolver_Resolve_Call) RunAndReturn(run func(context.Context, tagging.Spec) (int64, error)) *MockTagResolver_Resolve_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockTagResolver creates a new instance of MockTagResolver. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTagResolver(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTagResolver {
	m := &MockTagResolver{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
