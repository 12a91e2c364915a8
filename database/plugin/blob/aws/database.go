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

package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/quorum/database/plugin/blob/objectstore"
	"github.com/prometheus/client_golang/prometheus"
)

// BlobStoreS3 stores blobs as objects in an AWS S3 bucket
type BlobStoreS3 struct {
	*objectstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	client       *s3.Client
	bucket       string
	prefix       string
	region       string
	endpoint     string
	timeout      time.Duration
	pathStyle    bool
}

// NewWithOptions creates a new S3-backed blob store using options. The
// client is created by Start.
func NewWithOptions(opts ...BlobStoreS3OptionFunc) (*BlobStoreS3, error) {
	d := &BlobStoreS3{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.prefix != "" && !strings.HasSuffix(d.prefix, "/") {
		d.prefix += "/"
	}
	return d, nil
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreS3) Start() error {
	if d.bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}
	timeout := d.timeout
	if timeout == 0 {
		timeout = objectstore.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var loadOpts []func(*config.LoadOptions) error
	if d.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(d.region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return fmt.Errorf("s3 blob: load default AWS config: %w", err)
	}
	d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.endpoint != "" {
			o.BaseEndpoint = aws.String(d.endpoint)
		}
		o.UsePathStyle = d.usePathStyle()
	})
	store, err := objectstore.New(objectstore.Config{
		Backend:      d,
		Logger:       d.logger,
		PromRegistry: d.promRegistry,
		Prefix:       d.prefix,
		Timeout:      d.timeout,
	})
	if err != nil {
		return err
	}
	d.Store = store
	d.logger.Debug(
		"s3 blob store started",
		"component", "database",
		"bucket", d.bucket,
		"region", awsCfg.Region,
	)
	return nil
}

func (d *BlobStoreS3) usePathStyle() bool {
	return d.pathStyle || d.endpoint != ""
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreS3) Stop() error {
	return nil
}

// Close implements the BlobStore interface
func (d *BlobStoreS3) Close() error {
	return d.Stop()
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

func (d *BlobStoreS3) GetObject(ctx context.Context, name string) ([]byte, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, objectstore.ErrObjectNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (d *BlobStoreS3) PutObject(ctx context.Context, name string, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(name),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (d *BlobStoreS3) DeleteObject(ctx context.Context, name string) error {
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(name),
	})
	return err
}
