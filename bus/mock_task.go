// MockTask is written by hand in the shape MockGen produces for the
// Task interface in bus/task.go.

package bus

import (
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"

	record "github.com/aerofleet/hivebus/record"
)

// MockTask is a mock of Task interface
type MockTask struct {
	ctrl     *gomock.Controller
	recorder *MockTaskMockRecorder
}

// MockTaskMockRecorder is the mock recorder for MockTask
type MockTaskMockRecorder struct {
	mock *MockTask
}

// NewMockTask creates a new mock instance
func NewMockTask(ctrl *gomock.Controller) *MockTask {
	mock := &MockTask{ctrl: ctrl}
	mock.recorder = &MockTaskMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockTask) EXPECT() *MockTaskMockRecorder {
	return m.recorder
}

// Init mocks base method
func (m *MockTask) Init(out Outputs) error {
	ret := m.ctrl.Call(m, "Init", out)
	ret0, _ := ret[0].(error)
	return ret0
}

// Init indicates an expected call of Init
func (mr *MockTaskMockRecorder) Init(out interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Init", reflect.TypeOf((*MockTask)(nil).Init), out)
}

// ShouldRun mocks base method
func (m *MockTask) ShouldRun() bool {
	ret := m.ctrl.Call(m, "ShouldRun")
	ret0, _ := ret[0].(bool)
	return ret0
}

// ShouldRun indicates an expected call of ShouldRun
func (mr *MockTaskMockRecorder) ShouldRun() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ShouldRun", reflect.TypeOf((*MockTask)(nil).ShouldRun))
}

// Run mocks base method
func (m *MockTask) Run(inputs []*record.Record, out Outputs) error {
	ret := m.ctrl.Call(m, "Run", inputs, out)
	ret0, _ := ret[0].(error)
	return ret0
}

// Run indicates an expected call of Run
func (mr *MockTaskMockRecorder) Run(inputs, out interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockTask)(nil).Run), inputs, out)
}

// Cleanup mocks base method
func (m *MockTask) Cleanup() error {
	ret := m.ctrl.Call(m, "Cleanup")
	ret0, _ := ret[0].(error)
	return ret0
}

// Cleanup indicates an expected call of Cleanup
func (mr *MockTaskMockRecorder) Cleanup() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Cleanup", reflect.TypeOf((*MockTask)(nil).Cleanup))
}

// TaskInfo mocks base method
func (m *MockTask) TaskInfo() TaskInfo {
	ret := m.ctrl.Call(m, "TaskInfo")
	ret0, _ := ret[0].(TaskInfo)
	return ret0
}

// TaskInfo indicates an expected call of TaskInfo
func (mr *MockTaskMockRecorder) TaskInfo() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "TaskInfo", reflect.TypeOf((*MockTask)(nil).TaskInfo))
}
