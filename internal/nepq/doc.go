// Package nepq holds the NEPQ sales-conversation vocabulary: the eight
// ordered stages, the score breakdown and its aggregate, violation
// annotations and transcript turns. Everything here is pure and safe for
// concurrent use.
package nepq
