// Package deploy tests validated configuration documents against the live
// runtime before committing them.
//
// The deployment protocol for one document:
//
//  1. Refuse anything that has not passed validation.
//  2. Snapshot the currently deployed revision, if any.
//  3. Stage the candidate into the isolated staging area.
//  4. Invoke the external config-check against the merged staged+live tree.
//  5. On success, promote the staged artifact into the live tree. On any
//     failure (including a check timeout), discard the staged artifact and
//     leave the live tree bit-for-bit unchanged.
//
// The live tree has single-writer discipline: concurrent Test calls
// serialize behind an internal mutex so a deployment cycle never observes
// another's partial writes. Every attempt, pass or fail, leaves an audit
// record.
package deploy
