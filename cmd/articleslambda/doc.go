// Package articleslambda runs the article API as an AWS Lambda function
// behind an API Gateway proxy integration. It serves the same routes as
// cmd/articlesd by translating each API Gateway event into a plain HTTP
// request and back.
//
// Configuration is through environment variables. PAPYRUS_STORE chooses
// the backend: "s3" (the default) reads PAPYRUS_S3_BUCKET and the optional
// PAPYRUS_S3_PREFIX, "dynamodb" reads PAPYRUS_DYNAMODB_TABLE, and "memory"
// holds articles within one execution environment only. The AWS region and
// credentials come from the Lambda runtime.
package main // import "github.com/nicolagi/papyrus/cmd/articleslambda"
