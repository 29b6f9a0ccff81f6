package controltree

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// SetJSON applies a JSON document as declarative data on the container.
func (c *Container) SetJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decoding declarative json: %w", err)
	}
	c.Set(m)
	return nil
}

// SetYAML applies a YAML document as declarative data on the container.
func (c *Container) SetYAML(data []byte) error {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decoding declarative yaml: %w", err)
	}
	c.Set(m)
	return nil
}

// LoadFile reads a declarative document from disk and applies it, switching
// on the file extension (.json, .yaml, .yml).
func (c *Container) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return c.SetJSON(data)
	case ".yaml", ".yml":
		return c.SetYAML(data)
	}
	return fmt.Errorf("unsupported declarative file %q", path)
}

// WatchFile loads a declarative file and re-applies it whenever it changes
// on disk. The returned stop function releases the watcher.
//
// Changes are applied from the watcher goroutine; a tree is not designed for
// concurrent mutation, so hosts using WatchFile must route all other
// mutations through the same goroutine discipline.
func (c *Container) WatchFile(path string) (stop func() error, err error) {
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
					if loadErr := c.LoadFile(path); loadErr != nil {
						c.logger.Warn().Err(loadErr).Str("file", path).Msg("reloading declarative file failed")
					}
				}
			case watchErr, ok := <-w.Errors:
				if !ok {
					return
				}
				c.logger.Warn().Err(watchErr).Str("file", path).Msg("file watch error")
			}
		}
	}()

	return w.Close, nil
}
