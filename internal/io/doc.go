// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Atomic file writes (temp file + rename)
//   - Filename sanitization for cross-platform compatibility
//   - Locating downloaded artifacts and their thumbnails
//   - Duplicate handling (skip, overwrite, rename)
//   - Thumbnail resizing and JPEG conversion
//
// # File Operations
//
//	err := ioutils.WriteFileAtomic("/path/to/history.json", data)
//	path := ioutils.FindDownloadedFile(dir, "Song Title", "mp3")
//	target, exists, err := ioutils.ResolveDuplicate(path, "rename")
//
// # Image Processing
//
//	svc := ioutils.NewImageService()
//	cover, _ := svc.ResizeImage(ctx, webpData, 1000, 1000)
package ioutils
