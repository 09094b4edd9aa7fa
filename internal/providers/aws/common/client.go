package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Session is an authenticated AWS session with its resolved account identity.
// Callers obtain region-scoped clients via ClientProvider.ClientsForRegion.
type Session struct {
	// Profile is the shared-config profile name, or "default".
	Profile string

	// AccountID is the AWS account ID resolved via STS.
	AccountID string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config
}

// ClientProvider loads authenticated sessions and hands out region-scoped
// client sets. It is the sole entry point for AWS credential management;
// cross-account role and external-ID plumbing live behind the credential
// chain it loads, not in this package.
//
// Implementations must use the AWS SDK v2 only. Never shell out to the CLI.
type ClientProvider interface {
	// LoadSession returns a Session for the named profile.
	// Pass an empty string to use the default credential chain.
	LoadSession(ctx context.Context, profile string) (*Session, error)

	// ClientsForRegion returns a ClientSet whose service clients target
	// region, sharing the session's credentials.
	ClientsForRegion(s *Session, region string) *ClientSet
}
