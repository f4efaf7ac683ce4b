package token

type TokenType string

type Token struct {
	Type    TokenType
	Literal string
	Line    int // 1-based
	Column  int // 1-based
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	COMMENT = "COMMENT"

	// Identifiers + Literals
	IDENT  = "IDENT"  // summon, souls
	NUMBER = "NUMBER" // 123, 4.5, 0xff
	STRING = "STRING" // 'abc', "abc"

	// Operators
	ASSIGN     = "="
	PLUS_EQ    = "+="
	MINUS_EQ   = "-="
	MULT_EQ    = "*="
	DIV_EQ     = "/="
	MOD_EQ     = "%="
	PLUS       = "+"
	MINUS      = "-"
	ASTERISK   = "*"
	POWER      = "**"
	SLASH      = "/"
	PERCENT    = "%"
	INCREMENT  = "++"
	DECREMENT  = "--"
	BANG       = "!"
	EQ         = "=="
	NOT_EQ     = "!="
	STRICT_EQ  = "==="
	STRICT_NEQ = "!=="
	LT         = "<"
	GT         = ">"
	LTE        = "<="
	GTE        = ">="
	AND        = "&&"
	OR         = "||"
	ARROW      = "=>"
	QUESTION   = "?"

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	DOT       = "."
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"

	// Keywords
	LET       = "LET"
	CONST     = "CONST"
	VAR       = "VAR"
	FUNCTION  = "FUNCTION"
	RETURN    = "RETURN"
	IF        = "IF"
	ELSE      = "ELSE"
	FOR       = "FOR"
	OF        = "OF"
	WHILE     = "WHILE"
	DO        = "DO"
	BREAK     = "BREAK"
	CONTINUE  = "CONTINUE"
	SWITCH    = "SWITCH"
	CASE      = "CASE"
	DEFAULT   = "DEFAULT"
	TRUE      = "TRUE"
	FALSE     = "FALSE"
	NULL      = "NULL"
	UNDEFINED = "UNDEFINED"
	TYPEOF    = "TYPEOF"
)

var keywords = map[string]TokenType{
	"let":       LET,
	"const":     CONST,
	"var":       VAR,
	"function":  FUNCTION,
	"return":    RETURN,
	"if":        IF,
	"else":      ELSE,
	"for":       FOR,
	"of":        OF,
	"while":     WHILE,
	"do":        DO,
	"break":     BREAK,
	"continue":  CONTINUE,
	"switch":    SWITCH,
	"case":      CASE,
	"default":   DEFAULT,
	"true":      TRUE,
	"false":     FALSE,
	"null":      NULL,
	"undefined": UNDEFINED,
	"typeof":    TYPEOF,
}

// LookupIdent returns the keyword type for ident, or IDENT.
// Keywords are case-sensitive.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
