package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Wisma Sentral Admin API",
        "description": "Building administration portal: bulletin documents, signature ledger and store directory",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login, registration and token lifecycle"},
        {"name": "Users", "description": "Membership administration"},
        {"name": "Documents", "description": "Bulletin documents"},
        {"name": "Signatures", "description": "Signature ledger and visibility votes"},
        {"name": "Stores", "description": "Public store directory"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a member account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Pending account created"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "Tokens rotated"},
                    "401": {"description": "Token expired or revoked"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Session revoked"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Users", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get a user",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "User"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/users/{id}/approve": {
            "post": {
                "tags": ["Users"],
                "summary": "Approve a pending account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Account activated"},
                    "409": {"description": "Account already decided"}
                }
            }
        },
        "/users/{id}/reject": {
            "post": {
                "tags": ["Users"],
                "summary": "Reject a pending account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Account rejected"},
                    "409": {"description": "Account already decided"}
                }
            }
        },
        "/documents": {
            "get": {
                "tags": ["Documents"],
                "summary": "List documents",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "signature_required", "in": "query", "type": "boolean"},
                    {"name": "open_only", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Documents", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Documents"],
                "summary": "Publish a document",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Document published"},
                    "400": {"description": "Invalid payload"}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Get a document",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Document"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/documents/{id}/signatures": {
            "get": {
                "tags": ["Signatures"],
                "summary": "List signatures with per-viewer disclosure applied",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Projected listing with tally"}
                }
            },
            "post": {
                "tags": ["Signatures"],
                "summary": "Sign a document",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignRequest"}}
                ],
                "responses": {
                    "201": {"description": "Signature recorded"},
                    "403": {"description": "Not eligible"},
                    "409": {"description": "Already signed or document closed"}
                }
            }
        },
        "/documents/{id}/signatures/export": {
            "get": {
                "tags": ["Documents"],
                "summary": "Export the signature sheet",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "Rendered file"}
                }
            }
        },
        "/documents/{id}/visibility-votes": {
            "post": {
                "tags": ["Signatures"],
                "summary": "Cast the one-time visibility vote",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VisibilityVoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "Vote recorded, fresh tally returned"},
                    "409": {"description": "Already voted or document closed"},
                    "412": {"description": "Signature required before voting"}
                }
            }
        },
        "/documents/{id}/tally": {
            "get": {
                "tags": ["Signatures"],
                "summary": "Get the visibility tally",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Tally", "schema": {"$ref": "#/definitions/VisibilityTally"}}
                }
            }
        },
        "/signatures/{id}": {
            "put": {
                "tags": ["Signatures"],
                "summary": "Revise an existing signature",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Signature revised"},
                    "403": {"description": "Not the signature owner"},
                    "409": {"description": "Document closed"}
                }
            }
        },
        "/stores": {
            "get": {
                "tags": ["Stores"],
                "summary": "List stores",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "floor", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Stores", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stores/{id}": {
            "get": {
                "tags": ["Stores"],
                "summary": "Get a store",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Store"},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "full_name"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"}
            }
        },
        "SignRequest": {
            "type": "object",
            "required": ["role", "position", "artifact"],
            "properties": {
                "role": {"type": "string", "enum": ["LANDLORD", "TENANT"]},
                "position": {"type": "string", "enum": ["APPROVE", "REJECT"]},
                "artifact": {"type": "string", "format": "byte"},
                "unit_id": {"type": "string"}
            }
        },
        "VisibilityVoteRequest": {
            "type": "object",
            "required": ["choice"],
            "properties": {
                "choice": {"type": "string", "enum": ["public", "private"]}
            }
        },
        "VisibilityTally": {
            "type": "object",
            "properties": {
                "public_votes": {"type": "integer"},
                "private_votes": {"type": "integer"},
                "total_signers": {"type": "integer"},
                "total_votes": {"type": "integer"},
                "is_public": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
