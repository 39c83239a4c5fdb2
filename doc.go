// Package fetchimg downloads a single image over HTTP and saves it into a
// local directory without overwriting anything already there.
//
// # Overview
//
// One call to [Run] performs the whole pipeline: the URL is validated, one
// GET request is issued, the target directory is created if needed, a
// filename is derived and deduplicated, and the bytes are written.
//
// # Basic Usage
//
//	result, err := fetchimg.Run(ctx, "https://example.com/cat.jpg", fetchimg.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Path) // Fetched_Images/cat.jpg
//
// # Filenames
//
// The last URL path segment is used when it has an extension. Otherwise the
// file is named image.<ext>, with the extension taken from the response
// Content-Type (see [github.com/caffeineduck/fetchimg/naming]). Existing
// names get a numeric suffix: cat.jpg, cat_1.jpg, cat_2.jpg. Names longer
// than 255 bytes are shortened before the extension.
//
// # Errors
//
// Every failure is an [*Error] classified by [Kind]:
//
//	switch {
//	case errors.Is(err, fetchimg.ErrInvalidInput):
//	case errors.Is(err, fetchimg.ErrNetwork):
//	case errors.Is(err, fetchimg.ErrFileSystem):
//	}
//
// Nothing is retried.
//
// # Logging
//
// Run logs through the [github.com/rs/zerolog] logger attached to its
// context, if any.
package fetchimg
