package models

import "time"

// VarType is the declared C type of an extracted firmware variable.
// Only the types the glue emitter knows how to mutate are represented.
type VarType string

const (
	VarTypeInt     VarType = "int"
	VarTypeUint16  VarType = "uint16_t"
	VarTypeUint32  VarType = "uint32_t"
	VarTypeString  VarType = "String"
	VarTypeCharPtr VarType = "char *"
	VarTypeChar    VarType = "char"
)

// VariableDeclaration is one global-scope mutable variable discovered in a
// firmware translation unit. RawName preserves the array bracket suffix as
// written in the source; Name is the base identifier used for dispatch.
type VariableDeclaration struct {
	Type    VarType `json:"type"`
	RawType string  `json:"raw_type"`
	Name    string  `json:"name"`
	RawName string  `json:"raw_name"`
	IsArray bool    `json:"is_array"`
}

// GlueArtifact is the generated output of one glue pass: the ordered variable
// set plus the rendered header text (externs + dispatch function).
type GlueArtifact struct {
	SourcePath  string                `json:"source_path" badgerhold:"key"`
	Variables   []VariableDeclaration `json:"variables"`
	Header      string                `json:"header"`
	GeneratedAt time.Time             `json:"generated_at"`
}
