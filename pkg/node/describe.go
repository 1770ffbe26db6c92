package node

import "github.com/ajitpratap0/nebula-snowflake/pkg/config"

// Description is the node's self-description for workflow editors
type Description struct {
	DisplayName string             `json:"displayName"`
	Name        string             `json:"name"`
	Group       []string           `json:"group"`
	Version     int                `json:"version"`
	Summary     string             `json:"description"`
	Credentials []CredentialOption `json:"credentials"`
	Parameters  []Parameter        `json:"properties"`
}

// CredentialOption names a credential type and the authType that selects it
type CredentialOption struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	AuthType string `json:"authType"`
}

// Parameter describes one node parameter
type Parameter struct {
	DisplayName string        `json:"displayName"`
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Default     interface{}   `json:"default"`
	Required    bool          `json:"required,omitempty"`
	Options     []ParamOption `json:"options,omitempty"`
	// ShowFor lists the operations the parameter applies to; empty means all
	ShowFor     []string `json:"showFor,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ParamOption is one choice of an options parameter
type ParamOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Describe returns the node description
func Describe() Description {
	return Description{
		DisplayName: "Snowflake",
		Name:        "snowflake",
		Group:       []string{"input"},
		Version:     1,
		Summary:     "Get, add and update data in Snowflake",
		Credentials: []CredentialOption{
			{Name: "snowflake", Required: true, AuthType: config.AuthTypePassword},
			{Name: "snowflakeOAuth2Api", Required: true, AuthType: config.AuthTypeOAuth2},
		},
		Parameters: []Parameter{
			{
				DisplayName: "Authentication",
				Name:        "authType",
				Type:        "options",
				Default:     config.AuthTypePassword,
				Options: []ParamOption{
					{Name: "Password", Value: config.AuthTypePassword},
					{Name: "OAuth2", Value: config.AuthTypeOAuth2},
				},
			},
			{
				DisplayName: "Operation",
				Name:        "operation",
				Type:        "options",
				Default:     OperationInsert,
				Options: []ParamOption{
					{Name: "Execute Query", Value: OperationExecuteQuery},
					{Name: "Insert", Value: OperationInsert},
					{Name: "Update", Value: OperationUpdate},
				},
			},
			{
				DisplayName: "Query",
				Name:        "query",
				Type:        "string",
				Default:     "",
				Required:    true,
				ShowFor:     []string{OperationExecuteQuery},
				Description: "The SQL query to execute",
			},
			{
				DisplayName: "Output Format",
				Name:        "outputFormat",
				Type:        "options",
				Default:     OutputFormatJSON,
				ShowFor:     []string{OperationExecuteQuery},
				Options: []ParamOption{
					{Name: "JSON", Value: OutputFormatJSON},
					{Name: "CSV", Value: OutputFormatCSV},
				},
			},
			{
				DisplayName: "File Name",
				Name:        "fileName",
				Type:        "string",
				Default:     config.DefaultFileName,
				ShowFor:     []string{OperationExecuteQuery},
				Description: "Name of the CSV attachment",
			},
			{
				DisplayName: "Table",
				Name:        "table",
				Type:        "string",
				Default:     "",
				Required:    true,
				ShowFor:     []string{OperationInsert, OperationUpdate},
				Description: "Name of the table in which to insert or update data",
			},
			{
				DisplayName: "Columns",
				Name:        "columns",
				Type:        "string",
				Default:     "",
				ShowFor:     []string{OperationInsert, OperationUpdate},
				Description: "Comma-separated list of the properties which should be used as columns",
			},
			{
				DisplayName: "Update Key",
				Name:        "updateKey",
				Type:        "string",
				Default:     "id",
				Required:    true,
				ShowFor:     []string{OperationUpdate},
				Description: "Name of the property which decides which rows in the database should be updated",
			},
		},
	}
}
