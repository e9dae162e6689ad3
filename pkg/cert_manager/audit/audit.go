// Package audit delivers CertManagementEvent records to a security event
// sink. Delivery is fire and forget: a sink failure is logged and swallowed
// so that a logging outage never blocks a certificate operation.
package audit

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/diskutil"
	"github.com/openmon/sitecert/pkg/util"
	"github.com/sirupsen/logrus"
)

// NewEvent assembles an audit record for a finished operation.
func NewEvent(kind model.EventKind, component model.Component, actor string, cert *model.Certificate) model.CertManagementEvent {
	event := model.CertManagementEvent{
		ID:        util.NewUUID(),
		Kind:      kind,
		Component: component,
		Actor:     actor,
		CreatedAt: time.Now().Unix(),
	}
	if cert != nil {
		event.Cert = model.DetailsOf(*cert)
	}
	return event
}

// LogSink writes audit events to the process log.
type LogSink struct{}

func (LogSink) Emit(event model.CertManagementEvent) {
	logrus.WithFields(logrus.Fields{
		"event_id":  event.ID,
		"component": event.Component,
		"actor":     event.Actor,
	}).Infof("cert management event: %s", event.Kind)
}

// FileSink appends audit events as JSON lines to a log file.
type FileSink struct {
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Emit(event model.CertManagementEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		logrus.Warnf("failed to serialize cert management event %s: %v", event.ID, err)
		return
	}
	line = append(line, '\n')

	if err := diskutil.EnsureDir(filepath.Dir(s.path), 0o770); err != nil {
		logrus.Warnf("failed to create audit log directory: %v", err)
		return
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o660)
	if err != nil {
		logrus.Warnf("failed to open audit log %s: %v", s.path, err)
		return
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		logrus.Warnf("failed to write cert management event %s: %v", event.ID, err)
	}
}

// MultiSink fans one event out to several sinks.
type MultiSink []model.EventSink

func (m MultiSink) Emit(event model.CertManagementEvent) {
	for _, sink := range m {
		sink.Emit(event)
	}
}
