// Package tools defines the tool contracts the agent offers to the model and
// the SQL tools that back them.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - SQL tools: sql_db_list_tables, sql_db_schema, sql_db_query_checker, sql_db_query.
//   - Every statement passes sqlguard before it reaches the driver.
package tools
