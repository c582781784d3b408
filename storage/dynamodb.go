package storage

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"golang.org/x/time/rate"
)

// DynamoDBStore is an implementation of Store backed by a DynamoDB table.
// Each key-value pair is one item, key in attribute "k", value in "va".
// The last write to an item wins; there is no conditional put.
type DynamoDBStore struct {
	profile string
	region  string
	table   string

	// Do throttling on our side based on configured RCUs/WCUs so the
	// client doesn't have to retry.
	getLimiter *rate.Limiter
	putLimiter *rate.Limiter

	ddb *dynamodb.DynamoDB
}

func NewDynamoDBStore(profile, region, table string) (*DynamoDBStore, error) {
	s := &DynamoDBStore{
		profile: profile,
		region:  region,
		table:   table,
	}
	config := &aws.Config{Region: aws.String(s.region)}
	// An empty profile selects the default provider chain, which is how
	// role credentials are picked up when running in AWS.
	if s.profile != "" {
		config.Credentials = credentials.NewSharedCredentials("", s.profile)
	}
	sess, err := session.NewSession(config)
	if err != nil {
		return nil, err
	}
	s.ddb = dynamodb.New(sess)
	if err := s.configureLimiters(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DynamoDBStore) configureLimiters() error {
	result, err := s.ddb.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: &s.table,
	})
	if err != nil {
		return err
	}
	// Assume our items, that we get/put individually, are <= 1 kB,
	// so that RCUs/WCUs translate to get/put requests per second.
	rcus := aws.Int64Value(result.Table.ProvisionedThroughput.ReadCapacityUnits)
	wcus := aws.Int64Value(result.Table.ProvisionedThroughput.WriteCapacityUnits)
	s.getLimiter = newCapacityLimiter(rcus)
	s.putLimiter = newCapacityLimiter(wcus)
	return nil
}

func newCapacityLimiter(units int64) *rate.Limiter {
	// On-demand tables report zero provisioned capacity; don't throttle.
	if units <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(1_000_000/units)*time.Microsecond), 1)
}

func (s *DynamoDBStore) Put(key string, value []byte) (err error) {
	var input dynamodb.PutItemInput
	input.TableName = &s.table
	input.Item = map[string]*dynamodb.AttributeValue{
		"k":  ddbString(key),
		"va": ddbBinary(value),
	}
	time.Sleep(s.putLimiter.Reserve().Delay())
	_, err = s.ddb.PutItem(&input)
	return err
}

func (s *DynamoDBStore) Get(key string) (value []byte, err error) {
	var input dynamodb.GetItemInput
	input.TableName = &s.table
	input.Key = map[string]*dynamodb.AttributeValue{
		"k": ddbString(key),
	}
	time.Sleep(s.getLimiter.Reserve().Delay())
	output, err := s.ddb.GetItem(&input)
	if err != nil {
		return nil, err
	}
	if output.Item == nil {
		return nil, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	return output.Item["va"].B, nil
}

func (s *DynamoDBStore) Delete(key string) (err error) {
	var input dynamodb.DeleteItemInput
	input.TableName = &s.table
	input.Key = map[string]*dynamodb.AttributeValue{
		"k": ddbString(key),
	}
	time.Sleep(s.putLimiter.Reserve().Delay())
	_, err = s.ddb.DeleteItem(&input)
	return err
}

func (s *DynamoDBStore) Keys() (keys []string, err error) {
	var input dynamodb.ScanInput
	input.TableName = &s.table
	input.ProjectionExpression = aws.String("#k")
	input.ExpressionAttributeNames = map[string]*string{
		"#k": aws.String("k"),
	}
	time.Sleep(s.getLimiter.Reserve().Delay())
	err = s.ddb.ScanPages(&input, func(page *dynamodb.ScanOutput, lastPage bool) bool {
		for _, item := range page.Items {
			keys = append(keys, aws.StringValue(item["k"].S))
		}
		return true
	})
	return keys, err
}

func ddbString(v string) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{
		S: aws.String(v),
	}
}

func ddbBinary(b []byte) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{
		B: dup(b),
	}
}
