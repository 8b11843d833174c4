// Package lawdoc crawls regulatory documents from government portals,
// extracts their metadata and body text, and writes them out as JSON,
// Markdown with front-matter, DOCX and raw attachments.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, htmltomarkdown/).
package lawdoc
