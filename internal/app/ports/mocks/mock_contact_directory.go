package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockContactDirectory is a mock type for the ContactDirectory type
type MockContactDirectory struct {
	mock.Mock
}

type MockContactDirectory_Expecter struct {
	mock *mock.Mock
}

func (_m *MockContactDirectory) EXPECT() *MockContactDirectory_Expecter {
	return &MockContactDirectory_Expecter{mock: &_m.Mock}
}

// AttachTag provides a mock function with given fields: ctx, contactID, tagID
func (_m *MockContactDirectory) AttachTag(ctx context.Context, contactID int64, tagID int64) error {
	ret := _m.Called(ctx, contactID, tagID)

	if len(ret) == 0 {
		panic("no return value specified for AttachTag")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, int64, int64) error); ok {
		r0 = rf(ctx, contactID, tagID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// MockContactDirectory_AttachTag_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'AttachTag'
type MockContactDirectory_AttachTag_Call struct {
	*mock.Call
}

// AttachTag is a helper method to define mock.On call
//   - ctx context.Context
//   - contactID int64
//   - tagID int64
func (_e *MockContactDirectory_Expecter) AttachTag(ctx interface{}, contactID interface{}, tagID interface{}) *MockContactDirectory_AttachTag_Call {
	return &MockContactDirectory_AttachTag_Call{Call: _e.mock.On("AttachTag", ctx, contactID, tagID)}
}

func (_c *MockContactDirectory_AttachTag_Call) Run(run func(ctx context.Context, contactID int64, tagID int64)) *MockContactDirectory_AttachTag_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(int64), args[2].(int64))
	})
	return _c
}

func (_c *MockContactDirectory_AttachTag_Call) Return(_a0 error) *MockContactDirectory_AttachTag_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockContactDirectory_AttachTag_Call) RunAndReturn(run func(context.Context, int64, int64) error) *MockContactDirectory_AttachTag_Call {
	_c.Call.Return(run)
	return _c
}

// Upsert provides a mock function with given fields: ctx, email, firstName, lastName
func (_m *MockContactDirectory) Upsert(ctx context.Context, email string, firstName string, lastName string) (int64, error) {
	ret := _m.Called(ctx, email, firstName, lastName)

	if len(ret) == 0 {
		panic("no return value specified for Upsert")
	}

	var r0 int64
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) (int64, error)); ok {
		return rf(ctx, email, firstName, lastName)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) int64); ok {
		r0 = rf(ctx, email, firstName, lastName)
	} else {
		r0 = ret.Get(0).(int64)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string, string) error); ok {
		r1 = rf(ctx, email, firstName, lastName)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockContactDirectory_Upsert_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Upsert'
type MockContactDirectory_Upsert_Call struct {
	*mock.Call
}

// Upsert is a helper method to define mock.On call
//   - ctx context.Context
//   - email string
//   - firstName string
//   - lastName string
func (_e *MockContactDirectory_Expecter) Upsert(ctx interface{}, email interface{}, firstName interface{}, lastName interface{}) *MockContactDirectory_Upsert_Call {
	return &MockContactDirectory_Upsert_Call{Call: _e.mock.On("Upsert", ctx, email, firstName, lastName)}
}

func (_c *MockContactDirectory_Upsert_Call) Run(run func(ctx context.Context, email string, firstName string, lastName string)) *MockContactDirectory_Upsert_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(string), args[2].(string), args[3].(string))
	})
	return _c
}

func (_c *MockContactDirectory_Upsert_Call) Return(_a0 int64, _a1 error) *MockContactDirectory_Upsert_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockContactDirectory_Upsert_Call) RunAndReturn(run func(context.Context, string, string, string) (int64, error)) *MockContactDirectory_Upsert_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockContactDirectory creates a new instance of MockContactDirectory. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockContactDirectory(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockContactDirectory {
	m := &MockContactDirectory{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
