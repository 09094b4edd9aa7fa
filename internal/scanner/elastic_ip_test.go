package scanner

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

func TestElasticIPScan_ReturnsUnassociated(t *testing.T) {
	ec2 := &mockEC2{addresses: []ec2types.Address{
		{
			AllocationId: aws.String("eipalloc-free"),
			PublicIp:     aws.String("52.0.0.1"),
			Domain:       ec2types.DomainTypeVpc,
		},
		{
			AllocationId:  aws.String("eipalloc-used"),
			PublicIp:      aws.String("52.0.0.2"),
			AssociationId: aws.String("eipassoc-1"),
			InstanceId:    aws.String("i-1"),
		},
		{
			AllocationId:       aws.String("eipalloc-eni"),
			PublicIp:           aws.String("52.0.0.3"),
			NetworkInterfaceId: aws.String("eni-1"),
		},
	}}
	s := NewElasticIPScanner()

	got, err := s.Scan(context.Background(), newMockClients(ec2, nil, nil), "us-east-1", testOptions())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("candidates = %+v; want 1", got)
	}
	c := got[0]
	if c.ID != "eipalloc-free" {
		t.Errorf("ID = %q; want eipalloc-free", c.ID)
	}
	if !c.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v; want zero (addresses have no creation time)", c.CreatedAt)
	}
	if c.Details["public_ip"] != "52.0.0.1" {
		t.Errorf("Details[public_ip] = %v; want 52.0.0.1", c.Details["public_ip"])
	}
}

func TestElasticIPScan_SkipsProtectedTag(t *testing.T) {
	key, val := "Critical", "true"
	ec2 := &mockEC2{addresses: []ec2types.Address{
		{
			AllocationId: aws.String("eipalloc-crit"),
			PublicIp:     aws.String("52.0.0.4"),
			Tags:         []ec2types.Tag{{Key: &key, Value: &val}},
		},
	}}
	s := NewElasticIPScanner()

	got, err := s.Scan(context.Background(), newMockClients(ec2, nil, nil), "us-east-1", testOptions())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("candidates = %+v; want none", got)
	}
}
