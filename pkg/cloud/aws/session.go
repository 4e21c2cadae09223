package aws

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/pkg/errors"

	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// GetAWSSession returns a session for the region, static keys take precedence over the shared config
func GetAWSSession(region string, creds *types.Credentials) (*session.Session, error) {
	config := aws.Config{Region: aws.String(region)}
	if creds != nil && creds.AccessKeyID != "" {
		config.Credentials = credentials.NewStaticCredentials(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
		Config:            config,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create aws session for region %s", region)
	}
	return sess, nil
}

// CheckAWSError flattens aws errors into "Code: message" so known failures can match on the code
func CheckAWSError(err error) error {
	if aerr, ok := err.(awserr.Error); ok {
		return errors.Errorf("%s: %s", aerr.Code(), aerr.Message())
	}
	return errors.New(err.Error())
}

// isThrottle reports whether the api refused the call because of rate limiting
func isThrottle(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case "Throttling", "ThrottlingException", "RequestLimitExceeded":
			return true
		}
	}
	return false
}
