// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/blinklabs-io/quorum/database/plugin/blob/objectstore"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/option"
)

const startupTimeout = 30 * time.Second

// BlobStoreGCS keeps blobs as objects in a Google Cloud Storage bucket
type BlobStoreGCS struct {
	*objectstore.Store
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	client          *storage.Client
	bucket          *storage.BucketHandle
	bucketName      string
	credentialsFile string
	prefix          string
	endpoint        string
	timeout         time.Duration
}

func NewWithOptions(opts ...BlobStoreGCSOptionFunc) (*BlobStoreGCS, error) {
	d := &BlobStoreGCS{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return d, nil
}

// ValidateCredentials checks that a configured credentials file exists
func ValidateCredentials(credentialsFile string) error {
	if credentialsFile == "" {
		return nil
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf(
				"GCS credentials file does not exist: %s",
				credentialsFile,
			)
		}
		return fmt.Errorf("GCS credentials file: %w", err)
	}
	return nil
}

func (d *BlobStoreGCS) Start() error {
	if d.bucketName == "" {
		return errors.New("gcs blob: bucket not set")
	}
	if err := ValidateCredentials(d.credentialsFile); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	client, err := storage.NewClient(ctx, d.clientOptions()...)
	if err != nil {
		return fmt.Errorf("gcs blob: failed in creating storage client: %w", err)
	}
	store, err := objectstore.New(objectstore.Config{
		Backend:      d,
		Logger:       d.logger,
		PromRegistry: d.promRegistry,
		Prefix:       d.prefix,
		Timeout:      d.timeout,
	})
	if err != nil {
		client.Close() //nolint:errcheck
		return err
	}
	d.client = client
	d.bucket = client.Bucket(d.bucketName)
	d.Store = store
	d.logger.Debug(
		"gcs blob store started",
		"component", "database",
		"bucket", d.bucketName,
	)
	return nil
}

func (d *BlobStoreGCS) clientOptions() []option.ClientOption {
	opts := []option.ClientOption{storage.WithDisabledClientMetrics()}
	switch {
	case d.endpoint != "":
		opts = append(
			opts,
			option.WithEndpoint(d.endpoint),
			option.WithoutAuthentication(),
		)
	case d.credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(d.credentialsFile))
	}
	return opts
}

func (d *BlobStoreGCS) Stop() error {
	return d.Close()
}

func (d *BlobStoreGCS) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

func (d *BlobStoreGCS) GetObject(ctx context.Context, name string) ([]byte, error) {
	r, err := d.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, objectstore.ErrObjectNotFound
		}
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (d *BlobStoreGCS) PutObject(ctx context.Context, name string, data []byte) error {
	w := d.bucket.Object(name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (d *BlobStoreGCS) DeleteObject(ctx context.Context, name string) error {
	err := d.bucket.Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return objectstore.ErrObjectNotFound
	}
	return err
}
