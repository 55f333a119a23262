// Package accountview assembles the read model behind a user's account page.
//
// Build fans out to the store and the billing provider concurrently and joins every branch
// before composing a View. A failed branch degrades its field to an empty value instead of
// failing the build, including identity resolution itself, so the page always renders.
package accountview
