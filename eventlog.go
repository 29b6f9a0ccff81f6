package controltree

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// LogRecord is one entry of a tree event log.
// CBOR encoding uses integer keys for compactness.
type LogRecord struct {
	// Timestamp when the record was captured (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Event is the event name that produced the record.
	Event string `cbor:"2,keyasint"`

	// Path identifies the control the record was captured on.
	Path string `cbor:"3,keyasint,omitempty"`

	// Value is the event payload: a data delta or a log message. Creation
	// and removal records carry no payload; Path identifies the control.
	Value any `cbor:"4,keyasint,omitempty"`
}

var recordEncMode cbor.EncMode
var recordDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	recordEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("event log CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		IndefLength:    cbor.IndefLengthAllowed,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	recordDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("event log CBOR decoder mode: %v", err))
	}
}

// TreeLog appends tree activity records to a file in CBOR format. Attach
// subscribes it to a container's data deltas, log messages, and child
// creations and removals at every depth; a reader can replay the stream
// later with ReadTreeLog.
type TreeLog struct {
	file    *os.File
	encoder *cbor.Encoder

	mu     sync.Mutex
	closed bool

	detach []func()
}

// NewTreeLog creates an event log writing to path. Existing files are
// appended to.
func NewTreeLog(path string) (*TreeLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &TreeLog{
		file:    f,
		encoder: recordEncMode.NewEncoder(f),
	}, nil
}

// Record appends one record. Encoding errors are ignored: logging must not
// disrupt the tree.
func (l *TreeLog) Record(event, path string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_ = l.encoder.Encode(LogRecord{
		Timestamp: time.Now(),
		Event:     event,
		Path:      path,
		Value:     value,
	})
}

// Attach subscribes the log to a container's activity: data deltas reaching
// the root, log messages, and child creation and removal anywhere in the
// tree. Controls already present are armed for removal records without
// re-recording their creation. Closing the log removes the container
// subscriptions; hooks installed deeper in the tree then record nothing.
func (l *TreeLog) Attach(c *Container) {
	dataID := c.On(EventData, func(v any, _ Metadata) {
		l.Record(EventData, "", v)
	}, nil)
	logID := c.On(EventLog, func(v any, _ Metadata) {
		l.Record(EventLog, "", v)
	}, nil)
	childID := l.watchChildren(&c.BaseControl)
	for _, name := range sortedKeys(c.children) {
		l.hookSubtree(c.children[name].Base(), false)
	}

	l.mu.Lock()
	l.detach = append(l.detach,
		func() { c.Off(EventData, dataID) },
		func() { c.Off(EventLog, logID) },
		func() { c.Off(EventNewChildControl, childID) },
	)
	l.mu.Unlock()
}

// watchChildren hooks every child announced under b from now on.
func (l *TreeLog) watchChildren(b *BaseControl) string {
	return b.On(EventNewChildControl, func(v any, _ Metadata) {
		if child, ok := v.(Control); ok {
			l.hookSubtree(child.Base(), true)
		}
	}, nil)
}

// hookSubtree records a control's creation, arms a removal record, and
// extends the watch to its children. The recursion catches descendants built
// during the control's own declarative data application: those were
// announced before any hook existed on the control.
func (l *TreeLog) hookSubtree(cb *BaseControl, recordCreation bool) {
	path := cb.Path()
	if recordCreation {
		l.Record(EventNewChildControl, path, nil)
	}
	cb.Once(EventRemove, func(any, Metadata) {
		l.Record(EventRemove, path, nil)
	}, nil)
	l.watchChildren(cb)
	for _, name := range sortedKeys(cb.children) {
		l.hookSubtree(cb.children[name].Base(), recordCreation)
	}
}

// Close detaches the log from any container and closes the file. Safe to
// call multiple times; records after Close are silently dropped.
func (l *TreeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for _, off := range l.detach {
		off()
	}
	l.detach = nil
	return l.file.Close()
}

// ReadTreeLog decodes every record of an event log file.
func ReadTreeLog(path string) ([]LogRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []LogRecord
	dec := recordDecMode.NewDecoder(f)
	for {
		var rec LogRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, err
		}
		records = append(records, rec)
	}
}
