// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// createInventoryWatcher watches the directory of the device inventory file;
// editors usually replace the file instead of writing to it.
func createInventoryWatcher(path string) *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("error creating file watcher")
		return nil
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.Error().Err(err).Str("file", path).Msg("error adding file to watcher")
		watcher.Close()
		return nil
	}

	log.Info().Str("file", path).Msg("started watching device inventory file")
	return watcher
}

// watchInventoryFile calls onChange whenever the inventory file is modified.
// The inventory is built once at startup, so a change needs a restart.
func watchInventoryFile(ctx context.Context, path string, onChange func(fsnotify.Event)) {
	watcher := createInventoryWatcher(path)
	if watcher == nil {
		return
	}

	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					onChange(event)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("file watcher encountered an error")
			}
		}
	}()
}

func warnInventoryChanged(event fsnotify.Event) {
	log.Warn().
		Str("file", event.Name).
		Str("op", event.Op.String()).
		Msg("device inventory file changed, restart the exporter to apply it")
}
