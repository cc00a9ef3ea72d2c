// Package http provides the HTTP surface for hashdrop: URL shortening,
// file upload and download, resource deletion, per-owner listing, and a
// health endpoint. Identity resolution runs as middleware before every
// handler so authorization decisions always see a settled identity.
package http
