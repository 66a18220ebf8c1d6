// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package util

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// AWS IAM credential file paths (vault-injected)
const (
	DefaultAWSKeyFile  = "/vault/secrets/awsmigrationkey"
	DefaultAWSPassFile = "/vault/secrets/awsmigrationpass"

	// DBPasswordEnv bypasses Secrets Manager lookups (smoketests/local).
	// When set (even to an empty string), ResolveDBPassword returns it directly.
	DBPasswordEnv = "DUMP_MIGRATION_DB_PASSWORD" //nolint:gosec // env var name, not a credential
)

// AWSCredentials are optional static credentials from flags or config.
type AWSCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// LoadAWSConfig builds an AWS config with the following credential priority:
// 1. explicit static credentials (flags/config)
// 2. the SDK default chain (env, shared config, SSO, IAM roles)
// 3. vault files, used only when the environment carries no keys
func LoadAWSConfig(ctx context.Context, region string, creds AWSCredentials) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	if creds.AccessKeyID == "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		creds = vaultCredentials(DefaultAWSKeyFile, DefaultAWSPassFile)
	}
	if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("create AWS config: %w", err)
	}
	return cfg, nil
}

func vaultCredentials(keyFile, passFile string) AWSCredentials {
	var creds AWSCredentials
	if content, err := os.ReadFile(keyFile); err == nil {
		creds.AccessKeyID = strings.TrimSpace(string(content))
	}
	if content, err := os.ReadFile(passFile); err == nil {
		creds.SecretAccessKey = strings.TrimSpace(string(content))
	}
	return creds
}

// SecretsAPI is the part of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// GetPasswordFromSecretsManager retrieves the database password from AWS Secrets Manager.
// The secret JSON is expected to contain a "password" field.
func GetPasswordFromSecretsManager(ctx context.Context, svc SecretsAPI, secretName string) (string, error) {
	if secretName == "" {
		return "", fmt.Errorf("secret name is required for Secrets Manager")
	}

	out, err := svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return "", fmt.Errorf("get secret value: %w", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret string empty for %s", secretName)
	}

	var payload struct {
		Password string `json:"password"`
	}
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err != nil {
		return "", fmt.Errorf("parse secret json: %w", err)
	}
	if payload.Password == "" {
		return "", fmt.Errorf("password field empty in secret %s", secretName)
	}

	return payload.Password, nil
}

// ResolveDBPassword returns the destination DB password. If DBPasswordEnv is
// set (even to an empty string), that value is returned. Otherwise the
// password is fetched from Secrets Manager.
func ResolveDBPassword(ctx context.Context, cfg aws.Config, secretName string) (string, error) {
	if pwd, ok := os.LookupEnv(DBPasswordEnv); ok {
		return pwd, nil
	}
	return GetPasswordFromSecretsManager(ctx, secretsmanager.NewFromConfig(cfg), secretName)
}
