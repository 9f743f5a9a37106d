//go:build e2e

package identity_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
)

/*
 * Container setup shared by the identity provider end-to-end tests. The
 * image is built once from cmd/identity/Dockerfile; every test gets its own
 * container running the built-in catalog.
 */

const (
	testImageName = "docsauth-identity-test:latest"
	issuer        = "http://localhost:5100"
)

var (
	tokenClient    = authsdk.ClientAuth{ID: catalog.DefaultTokenClientID, Secret: catalog.DevelopmentSecret}
	codeClient     = authsdk.ClientAuth{ID: catalog.DefaultCodeClientID}
	resourceClient = authsdk.ClientAuth{ID: catalog.DefaultResource, Secret: catalog.DevelopmentSecret}
	redirectURI    = "http://localhost:5000/swagger/oauth2-redirect.html"
)

// TestMain builds the image once before all tests and removes it after.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building identity provider Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up identity provider Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/identity/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

// setupIdentityContainer starts the provider and returns its base URL.
// extraEnv overrides the defaults.
func setupIdentityContainer(t *testing.T, extraEnv map[string]string) string {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"IDENTITY_ISSUER":    issuer,
		"IDENTITY_ALGORITHM": "ES256",
		"ENV":                "test",
		"LOG_LEVEL":          "info",
		"LOG_FORMAT":         "json",
		// The defaults are tuned for browsers, not test loops.
		"RATELIMIT_TOKEN_REQUESTS":      "1000",
		"RATELIMIT_TOKEN_BURST":         "1000",
		"RATELIMIT_LOGIN_REQUESTS":      "1000",
		"RATELIMIT_LOGIN_BURST":         "1000",
		"RATELIMIT_INTROSPECT_REQUESTS": "1000",
		"RATELIMIT_INTROSPECT_BURST":    "1000",
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"5100/tcp"},
			Env:          env,
			WaitingFor: wait.ForHTTP(authsdk.PathLiveness).
				WithPort("5100/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5100")
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func newClient(t *testing.T, baseURL string) *authsdk.Client {
	t.Helper()
	return authsdk.NewClient(baseURL)
}
