// Package cutlist reads cut lists uploaded by users: JSON or YAML documents
// with "meta" and "blueprints" sections, and CSV or Excel tables with one row
// per distinct piece.
package cutlist
