// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package blob

import (
	"context"
	"io"

	"github.com/gorse-io/bookrec/config"
	"github.com/juju/errors"
)

// Store is a flat namespace of named blobs. Model artifacts are read from a Store at startup.
type Store interface {
	// Open a blob for reading. A missing blob is reported as errors.NotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Create a blob for writing. The returned channel is closed once the content is persisted.
	Create(name string) (io.WriteCloser, chan struct{}, error)
	// List names of all blobs.
	List(ctx context.Context) ([]string, error)
}

// Open creates the Store selected by the artifacts configuration.
func Open(cfg config.ArtifactsConfig) (Store, error) {
	switch cfg.Storage {
	case config.StoragePOSIX, "":
		return NewPOSIX(cfg.Dir), nil
	case config.StorageS3:
		return NewS3(cfg.S3)
	case config.StorageGCS:
		return NewGCS(cfg.GCS)
	case config.StorageAzure:
		return NewAzureBlob(cfg.Azure, cfg.Azure.Container, cfg.Azure.Prefix)
	default:
		return nil, errors.NotSupportedf("artifact storage %s", cfg.Storage)
	}
}

// ReadAll reads a whole blob.
func ReadAll(ctx context.Context, store Store, name string) ([]byte, error) {
	r, err := store.Open(ctx, name)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open %s", name)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to read %s", name)
	}
	return data, nil
}

// WriteAll writes a whole blob and waits until it is persisted.
func WriteAll(store Store, name string, data []byte) error {
	w, done, err := store.Create(name)
	if err != nil {
		return errors.Annotatef(err, "failed to create %s", name)
	}
	if _, err = w.Write(data); err != nil {
		_ = w.Close()
		return errors.Annotatef(err, "failed to write %s", name)
	}
	if err = w.Close(); err != nil {
		return errors.Annotatef(err, "failed to close %s", name)
	}
	<-done
	return nil
}
