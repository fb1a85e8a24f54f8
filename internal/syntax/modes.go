package syntax

import "regexp"

var modes = []Mode{
	{Name: "C", MIME: "text/x-csrc", Mode: "clike", ext: []string{"c", "h", "ino"}},
	{Name: "C++", MIME: "text/x-c++src", Mode: "clike", ext: []string{"cpp", "c++", "cc", "cxx", "hpp", "h++", "hh", "hxx"}},
	{Name: "C#", MIME: "text/x-csharp", Mode: "clike", ext: []string{"cs"}},
	{Name: "Java", MIME: "text/x-java", Mode: "clike", ext: []string{"java"}},
	{Name: "Kotlin", MIME: "text/x-kotlin", Mode: "clike", ext: []string{"kt"}},
	{Name: "Scala", MIME: "text/x-scala", Mode: "clike", ext: []string{"scala"}},
	{Name: "Clojure", MIME: "text/x-clojure", Mode: "clojure", ext: []string{"clj", "cljc", "cljx"}},
	{Name: "CMake", MIME: "text/x-cmake", Mode: "cmake", ext: []string{"cmake", "cmake.in"}, file: regexp.MustCompile(`^CMakeLists\.txt$`)},
	{Name: "CSS", MIME: "text/css", Mode: "css", ext: []string{"css"}},
	{Name: "D", MIME: "text/x-d", Mode: "d", ext: []string{"d"}},
	{Name: "Dart", MIME: "application/dart", Mode: "dart", ext: []string{"dart"}},
	{Name: "diff", MIME: "text/x-diff", Mode: "diff", ext: []string{"diff", "patch"}},
	{Name: "Dockerfile", MIME: "text/x-dockerfile", Mode: "dockerfile", file: regexp.MustCompile(`^Dockerfile$`)},
	{Name: "Elixir", MIME: "text/x-elixir", Mode: "elixir", ext: []string{"ex", "exs"}},
	{Name: "Erlang", MIME: "text/x-erlang", Mode: "erlang", ext: []string{"erl"}},
	{Name: "Fortran", MIME: "text/x-fortran", Mode: "fortran", ext: []string{"f", "for", "f77", "f90", "f95"}},
	{Name: "Go", MIME: "text/x-go", Mode: "go", ext: []string{"go"}},
	{Name: "Groovy", MIME: "text/x-groovy", Mode: "groovy", ext: []string{"groovy", "gradle"}, file: regexp.MustCompile(`^Jenkinsfile$`)},
	{Name: "Haskell", MIME: "text/x-haskell", Mode: "haskell", ext: []string{"hs"}},
	{Name: "HTML", MIME: "text/html", Mode: "htmlmixed", ext: []string{"html", "htm", "handlebars", "hbs"}},
	{Name: "JavaScript", MIME: "text/javascript", Mode: "javascript", ext: []string{"js", "mjs", "cjs"}},
	{Name: "JSON", MIME: "application/json", Mode: "javascript", ext: []string{"json", "map"}},
	{Name: "TypeScript", MIME: "application/typescript", Mode: "javascript", ext: []string{"ts"}},
	{Name: "Julia", MIME: "text/x-julia", Mode: "julia", ext: []string{"jl"}},
	{Name: "Lua", MIME: "text/x-lua", Mode: "lua", ext: []string{"lua"}},
	{Name: "Markdown", MIME: "text/x-markdown", Mode: "markdown", ext: []string{"markdown", "md", "mkd"}},
	{Name: "Nginx", MIME: "text/x-nginx-conf", Mode: "nginx", file: regexp.MustCompile(`nginx.*\.conf$`)},
	{Name: "OCaml", MIME: "text/x-ocaml", Mode: "mllike", ext: []string{"ml", "mli", "mll", "mly"}},
	{Name: "Pascal", MIME: "text/x-pascal", Mode: "pascal", ext: []string{"p", "pas"}},
	{Name: "Perl", MIME: "text/x-perl", Mode: "perl", ext: []string{"pl", "pm"}},
	{Name: "PHP", MIME: "application/x-httpd-php", Mode: "php", ext: []string{"php", "php3", "php4", "php5", "php7", "phtml"}},
	{Name: "Plain Text", MIME: "text/plain", Mode: "null", ext: []string{"txt", "text", "conf", "def", "list", "log"}},
	{Name: "PowerShell", MIME: "application/x-powershell", Mode: "powershell", ext: []string{"ps1", "psd1", "psm1"}},
	{Name: "Properties files", MIME: "text/x-properties", Mode: "properties", ext: []string{"properties", "ini", "in"}},
	{Name: "ProtoBuf", MIME: "text/x-protobuf", Mode: "protobuf", ext: []string{"proto"}},
	{Name: "Python", MIME: "text/x-python", Mode: "python", ext: []string{"BUILD", "bzl", "py", "pyw"}, file: regexp.MustCompile(`^(BUCK|BUILD)$`)},
	{Name: "R", MIME: "text/x-rsrc", Mode: "r", ext: []string{"r", "R"}},
	{Name: "Ruby", MIME: "text/x-ruby", Mode: "ruby", ext: []string{"rb"}, file: regexp.MustCompile(`^(Gemfile|Rakefile)$`)},
	{Name: "Rust", MIME: "text/x-rustsrc", Mode: "rust", ext: []string{"rs"}},
	{Name: "Sass", MIME: "text/x-sass", Mode: "sass", ext: []string{"sass"}},
	{Name: "SCSS", MIME: "text/x-scss", Mode: "css", ext: []string{"scss"}},
	{Name: "Scheme", MIME: "text/x-scheme", Mode: "scheme", ext: []string{"scm", "ss"}},
	{Name: "Shell", MIME: "text/x-sh", Mode: "shell", ext: []string{"sh", "ksh", "bash"}, file: regexp.MustCompile(`^PKGBUILD$`)},
	{Name: "SQL", MIME: "text/x-sql", Mode: "sql", ext: []string{"sql"}},
	{Name: "Swift", MIME: "text/x-swift", Mode: "swift", ext: []string{"swift"}},
	{Name: "TOML", MIME: "text/x-toml", Mode: "toml", ext: []string{"toml"}},
	{Name: "Makefile", MIME: "text/x-makefile", Mode: "cmake", ext: []string{"mk"}, file: regexp.MustCompile(`^(GNU)?[Mm]akefile$`)},
	{Name: "XML", MIME: "application/xml", Mode: "xml", ext: []string{"xml", "xsl", "xsd", "svg"}},
	{Name: "YAML", MIME: "text/x-yaml", Mode: "yaml", ext: []string{"yaml", "yml"}},
}
