// Package clientcli provides a client library for interacting with hashdrop
// servers.
//
// It supports URL shortening, file upload and download, resource deletion,
// and listing your own resources, authenticating with a bearer token. The
// package includes profile-based configuration for managing connections to
// multiple servers.
//
// # Basic Usage
//
// Create a client and shorten a URL:
//
//	cfg := &clientcli.Config{
//		Endpoint: "http://localhost:5709",
//		Token:    "your-bearer-token",
//	}
//
//	client, err := clientcli.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.Shorten(ctx, clientcli.ShortenOptions{
//		URL:         "https://example.com/some/long/path",
//		Description: "example link",
//	})
//
// # Profile Configuration
//
// Use profiles to manage multiple server configurations. Profiles live in
// ~/.hashdrop/config.yaml and are managed by the hashdrop-cli configure
// command.
package clientcli
