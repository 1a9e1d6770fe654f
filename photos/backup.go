package photos

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mbroe/fotostrom/db"
)

const backupObjectKey = "fotostrom/db-backup.db"

func (s *PhotoService) BackupDbAndLogError(ctx context.Context) error {
	err := s.BackupDb(ctx)
	if err != nil {
		log.Printf("failed to backup db: %v", err)
	}
	return nil
}

// BackupDb writes a vacuumed copy of the sqlite db and uploads it to the
// configured S3-compatible bucket. Refuses to overwrite a larger remote
// object with a smaller local file.
func (s *PhotoService) BackupDb(ctx context.Context) error {
	cfg := s.context.Config
	if cfg.BackupDbPath == "" || cfg.S3BackupBucket == "" {
		return fmt.Errorf("backup is not configured")
	}
	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	os.Remove(cfg.BackupDbPath)
	_, err = dbConn.ExecContext(ctx, "VACUUM INTO ?", cfg.BackupDbPath)
	if err != nil {
		return fmt.Errorf("failed to vacuum db into %v: %w", cfg.BackupDbPath, err)
	}
	dbBackupFile, err := os.Open(cfg.BackupDbPath)
	if err != nil {
		return fmt.Errorf("failed to open backup db file: %w", err)
	}
	defer dbBackupFile.Close()
	dbBackupFileStat, err := dbBackupFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat db backup file: %w", err)
	}

	client, err := newBackupClient(ctx, cfg.S3BackupUrl, cfg.S3BackupAccessKeyId, cfg.S3BackupSecretAccessKey)
	if err != nil {
		return err
	}

	bucket := cfg.S3BackupBucket
	objects, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: &bucket,
	})
	if err != nil {
		return fmt.Errorf("failed to list backup objects: %w", err)
	}
	for _, obj := range objects.Contents {
		if obj.Key == nil || *obj.Key != backupObjectKey {
			continue
		}
		// do not attempt to over-write a larger file with a smaller file
		if obj.Size != nil && *obj.Size > dbBackupFileStat.Size() {
			return fmt.Errorf("attempting to over-write large file (%v) with small local file (%v)", *obj.Size, dbBackupFileStat.Size())
		}
	}

	key := backupObjectKey
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   dbBackupFile,
	})
	if err != nil {
		return fmt.Errorf("failed to upload db backup file: %w", err)
	}

	err = os.Remove(cfg.BackupDbPath)
	if err != nil {
		return fmt.Errorf("failed to remove local db backup file: %w", err)
	}
	return nil
}

func newBackupClient(ctx context.Context, url string, accessKeyId string, secretAccessKey string) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: url,
		}, nil
	})
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyId, secretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup storage config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}
