package common

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultClientProvider is the production implementation of ClientProvider.
// It reads credentials from the standard AWS shared config chain using the
// AWS SDK v2.
//
// Inject a custom ClientFactory via NewDefaultClientProviderWithFactory to
// replace real SDK clients with mocks in unit tests.
type DefaultClientProvider struct {
	factory ClientFactory
}

// NewDefaultClientProvider returns a provider backed by the real AWS SDK.
func NewDefaultClientProvider() *DefaultClientProvider {
	return &DefaultClientProvider{factory: NewClientSet}
}

// NewDefaultClientProviderWithFactory returns a provider that uses f to
// create its ClientSets. Pass a mock factory in tests.
func NewDefaultClientProviderWithFactory(f ClientFactory) *DefaultClientProvider {
	return &DefaultClientProvider{factory: f}
}

// LoadSession loads the SDK config for the named profile and resolves the
// account ID via STS GetCallerIdentity. A failure here is a credential
// failure: the caller must abort before any scanner runs.
func (p *DefaultClientProvider) LoadSession(ctx context.Context, profile string) (*Session, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS credentials for profile %q: %w", displayProfile(profile), err)
	}

	// Fall back to us-east-1 when the profile has no region configured so
	// that STS and all later SDK clients can be constructed.
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	accountID, err := resolveAccountID(ctx, p.factory(cfg).STS)
	if err != nil {
		return nil, fmt.Errorf("resolve account ID for profile %q: %w", displayProfile(profile), err)
	}

	return &Session{
		Profile:   displayProfile(profile),
		AccountID: accountID,
		Config:    cfg,
	}, nil
}

// ClientsForRegion returns a ClientSet built from a copy of the session
// config with Region set to region.
func (p *DefaultClientProvider) ClientsForRegion(s *Session, region string) *ClientSet {
	regional := s.Config
	regional.Region = region
	return p.factory(regional)
}

// displayProfile returns a human-readable profile identifier. An empty
// string (the default credential chain) is shown as "default".
func displayProfile(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

// resolveAccountID calls STS GetCallerIdentity to retrieve the numeric AWS
// account ID for the loaded credentials.
func resolveAccountID(ctx context.Context, stsClient STSClient) (string, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if out.Account == nil {
		return "", fmt.Errorf("STS GetCallerIdentity returned nil account")
	}
	return aws.ToString(out.Account), nil
}
