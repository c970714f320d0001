// Package runner sends a numbered list of prompts to an agent one after the
// other, continuing the same agent session from the second prompt on.
//
// The prompt list is a text file with one prompt per line:
//
//	1. read the code in internal/ and summarize it
//	2) now list three refactoring ideas
//	3. implement the first one
//
// Lines that do not start with a number followed by "." or ")" are ignored.
// Prompts run in ordinal order. A prompt that times out is retried in the
// same mode up to the policy's attempt budget; any other failure is recorded
// and the run moves on. Every prompt contributes exactly one [Result] to the
// [Transcript], which can be written as text, JSON or YAML.
package runner
