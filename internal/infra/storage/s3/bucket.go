package s3

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
)

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// publicReadPolicy lets anyone GET objects so avatar URLs can be embedded directly.
func publicReadPolicy(bucket string) (string, error) {
	raw, err := json.Marshal(bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/*"},
		}},
	})
	return string(raw), err
}

// prepareBucket creates the bucket with a public-read policy once. A failed
// attempt is retried on the next upload.
func (c *Client) prepareBucket(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("s3: check bucket: %w", err)
	}
	if !exists {
		if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("s3: create bucket: %w", err)
		}
		policy, err := publicReadPolicy(c.bucket)
		if err != nil {
			return err
		}
		if err := c.api.SetBucketPolicy(ctx, c.bucket, policy); err != nil {
			return fmt.Errorf("s3: set bucket policy: %w", err)
		}
		c.logger.Info("bucket created", "bucket", c.bucket)
	}
	c.ready = true
	return nil
}
