package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/GoCodeAlone/bootstrap"
)

const defaultHeartbeat = 30 * time.Second

// builtinFactories returns the module types manifests can use with bootctl.
//
//	noop       a module without callbacks
//	logging    logs every lifecycle phase
//	heartbeat  logs on a kernel background job every "interval"
func builtinFactories() *bootstrap.FactoryRegistry {
	r := bootstrap.NewFactoryRegistry()
	r.Register("noop", func(name string, _ bootstrap.Settings) (any, error) {
		return &noopModule{name: name}, nil
	})
	r.Register("logging", func(name string, s bootstrap.Settings) (any, error) {
		return &loggingModule{name: name, message: s.String("message", "")}, nil
	})
	r.Register("heartbeat", func(name string, s bootstrap.Settings) (any, error) {
		interval, err := s.Duration("interval", defaultHeartbeat)
		if err != nil {
			return nil, err
		}
		return &heartbeatModule{name: name, interval: interval}, nil
	})
	return r
}

type noopModule struct {
	name string
}

func (m *noopModule) Name() string { return m.name }

type loggingModule struct {
	name    string
	message string
	logger  bootstrap.Logger
}

func (m *loggingModule) Name() string { return m.name }

func (m *loggingModule) PreInitialize(rt bootstrap.Runtime) error {
	m.logger = rt.Logger()
	m.logger.Info("PreInitialize", "message", m.message)
	return nil
}

func (m *loggingModule) Initialize(bootstrap.Runtime) error {
	m.logger.Info("Initialize")
	return nil
}

func (m *loggingModule) PostInitialize(bootstrap.Runtime) error {
	m.logger.Info("PostInitialize")
	return nil
}

func (m *loggingModule) Shutdown(context.Context) error {
	m.logger.Info("Shutdown")
	return nil
}

type heartbeatModule struct {
	name     string
	interval time.Duration
}

func (m *heartbeatModule) Name() string { return m.name }

func (m *heartbeatModule) Initialize(rt bootstrap.Runtime) error {
	logger := rt.Logger()
	_, err := rt.Kernel().Schedule(fmt.Sprintf("@every %s", m.interval), m.name, func() {
		logger.Info("Heartbeat")
	})
	return err
}
