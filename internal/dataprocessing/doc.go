// Package dataprocessing implements the survey data pipeline.
//
// The write side runs Normalize → Merge: raw spreadsheet bytes become
// canonical district records, which fold into one nested document per
// state, one period entry per upload.
//
// The read side runs in two shapes: FormatStates projects stored
// documents into the client JSON contract, and Flatten turns them back
// into a presentation-ordered table for spreadsheet export.
package dataprocessing
