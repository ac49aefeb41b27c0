// Package naming derives output paths for converted files.
//
// Outputs sit next to their input as <stem>_av1.<container>. When two
// inputs in one run would claim the same output (movie.mkv and movie.mp4
// converted to mp4), the CollisionResolver numbers the later one
// <stem>_2_av1.<container>.
package naming
