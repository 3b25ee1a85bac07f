// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Addheader adds license headers to source files.

It recursively walks a directory and prepends a license header to every
source file that doesn't already contain a copyright notice. The header is
chosen by the file's extension:

  - .js, .jsx, .ts, .tsx, .mjs: a JSDoc-style block comment.
  - .py: # line comments.
  - .css, .scss: a C-style block comment.
  - .html, .htm: an <!-- ... --> comment.

Directories such as .git, node_modules, dist and build are never entered.
Lock files, dotenv files and files that look binary (a NUL byte within the
first kilobyte) are skipped. A file counts as already covered if it contains
"Copyright (c)" or "© {year}" anywhere. Bytes that are not valid UTF-8 are
ignored when looking for these markers.

Headers carry the current year unless -year or the configuration sets
another one.

The built-in tables can be changed with a configuration file: a txtar
archive, by default .addheader.txtar in the processed directory. It can
contain the following files:

  - config.yaml: holder, url, year, year_from_mtime (use the year each
    file was last modified), markers (templates like headers), extensions,
    ignore_dirs, ignore_files and exclude (doublestar patterns matched against paths
    relative to the processed directory). Mapping an extension to an empty
    category removes it.
  - template.{category}: a text/template for the header of a category
    (script, hash, style, markup or a new one), rendered with .Year,
    .Holder and .URL.

Use -dry-run to see which files would change without writing anything.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/addheader/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
