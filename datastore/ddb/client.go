/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
)

// API is the subset of the DynamoDB client used by Table. *dynamodb.Client
// satisfies it, and so does the in-memory fake in datastore/mock.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

var _ API = (*sdk.Client)(nil)

// NewDynamoDBClient initializes a DynamoDB client. Static credentials are
// used when both keys are supplied, otherwise the default AWS credential
// chain applies. A non-empty endpoint points the client at a local or
// compatible store.
func NewDynamoDBClient(ctx context.Context, logger zerolog.Logger, region, accessKey, secretKey, endpoint string) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	logger.Debug().Str("region", region).Str("endpoint", endpoint).Msg("DynamoDB client initialized")
	return client, nil
}
