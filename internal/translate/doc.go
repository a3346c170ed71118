// Package translate sends a user's text to the Anthropic Messages API together
// with a window of the active conversation and records the exchange.
//
// Invariant:
//   - The user message and its translation are appended only after the API
//     call succeeds, user first. A failed call persists nothing.
//
// Flow:
//
//	RecentMessages -> window -> Messages.New -> AppendMessage(user) -> AppendMessage(assistant)
package translate
