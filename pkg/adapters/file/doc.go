// Package file persists answers to the local filesystem.
package file
