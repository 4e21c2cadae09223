package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
)

// ListInstances returns the sorted ids of running instances carrying every given tag
func (e *Executor) ListInstances(ctx context.Context, tags map[string]string) ([]string, error) {
	if len(tags) == 0 {
		return nil, cerrors.NoTargetsIdentified{Target: fmt.Sprintf("{Region: %v}", e.region), Reason: "no instance tags provided"}
	}

	filters := []*ec2.Filter{
		{
			Name:   aws.String("instance-state-name"),
			Values: aws.StringSlice([]string{ec2.InstanceStateNameRunning}),
		},
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		filters = append(filters, &ec2.Filter{
			Name:   aws.String("tag:" + k),
			Values: aws.StringSlice([]string{tags[k]}),
		})
	}

	var instanceList []string
	err := e.ec2.DescribeInstancesPagesWithContext(ctx, &ec2.DescribeInstancesInput{Filters: filters},
		func(page *ec2.DescribeInstancesOutput, _ bool) bool {
			for _, reservationDetails := range page.Reservations {
				for _, i := range reservationDetails.Instances {
					instanceList = append(instanceList, aws.StringValue(i.InstanceId))
				}
			}
			return true
		})
	if err != nil {
		return nil, cerrors.Transport{
			Target: fmt.Sprintf("{EC2 Instance Tags: %v, Region: %v}", tags, e.region),
			Reason: fmt.Sprintf("failed to list instances: %v", CheckAWSError(err)),
		}
	}
	sort.Strings(instanceList)
	return instanceList, nil
}
