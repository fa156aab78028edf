package schema

// installBuiltins populates the per-schema built-in tables.
func installBuiltins(s *Schema) {
	for _, t := range []Named{
		NewScalar("String", "The `String` scalar type represents textual data, represented as UTF-8 character sequences.").
			SetCoercer(coerceString).SetSerializer(serializeString),
		NewScalar("Int", "The `Int` scalar type represents non-fractional signed whole numeric values.").
			SetCoercer(coerceInt).SetSerializer(serializeInt),
		NewScalar("Float", "The `Float` scalar type represents signed double-precision fractional values.").
			SetCoercer(coerceFloat).SetSerializer(serializeFloat),
		NewScalar("Boolean", "The `Boolean` scalar type represents `true` or `false`.").
			SetCoercer(coerceBoolean).SetSerializer(serializeBoolean),
		NewScalar("ID", "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.").
			SetCoercer(coerceID).SetSerializer(serializeID),
	} {
		s.builtinTypes[t.Name()] = t
	}
	for _, t := range metaTypes() {
		s.builtinTypes[t.Name()] = t
	}

	nonNullBoolean := NonNullType(NamedType("Boolean"))
	for _, d := range []*Directive{
		NewDirective("include", "Directs the executor to include this field or fragment only when the `if` argument is true.").
			AddLocation(LocationField, LocationFragmentSpread, LocationInlineFragment).
			AddArgument(NewInputValue("if", "Included when true.", nonNullBoolean)),
		NewDirective("skip", "Directs the executor to skip this field or fragment when the `if` argument is true.").
			AddLocation(LocationField, LocationFragmentSpread, LocationInlineFragment).
			AddArgument(NewInputValue("if", "Skipped when true.", nonNullBoolean)),
		NewDirective("deprecated", "Marks an element of a GraphQL schema as no longer supported.").
			AddLocation(LocationFieldDefinition, LocationArgumentDefinition, LocationInputFieldDefinition, LocationEnumValue).
			AddArgument(NewInputValue("reason", "Explains why this element was deprecated.", NamedType("String")).
				SetDefault("No longer supported")),
		NewDirective("specifiedBy", "Exposes a URL that specifies the behavior of this scalar.").
			AddLocation(LocationScalar).
			AddArgument(NewInputValue("url", "The URL that specifies the behavior of this scalar.", NonNullType(NamedType("String")))),
		NewDirective("oneOf", "Indicates exactly one field must be supplied and this field must not be `null`.").
			AddLocation(LocationInputObject),
	} {
		s.builtinDirectives[d.Name] = d
	}

	s.typenameField = NewField("__typename", "The name of the current Object type at runtime.", NonNullType(NamedType("String")))
	s.schemaField = NewField("__schema", "Access the current type schema of this server.", NonNullType(NamedType("__Schema")))
	s.typeField = NewField("__type", "Request the type information of a single type.", NamedType("__Type")).
		AddArgument(NewInputValue("name", "The name of the type to look up.", NonNullType(NamedType("String"))))
}

func metaTypes() []Named {
	str := NamedType("String")
	nonNullStr := NonNullType(str)
	boolean := NamedType("Boolean")
	nonNullBool := NonNullType(boolean)
	typ := NamedType("__Type")
	listOf := func(name string) *TypeRef { return ListType(NonNullType(NamedType(name))) }
	includeDeprecated := func() *InputValue {
		return NewInputValue("includeDeprecated", "", boolean).SetDefault(false)
	}

	schemaType := NewObject("__Schema", "A GraphQL Schema defines the capabilities of a GraphQL server.").
		AddField(NewField("description", "A description of the schema.", str)).
		AddField(NewField("types", "A list of all types supported by this server.", NonNullType(listOf("__Type")))).
		AddField(NewField("queryType", "The type that query operations will be rooted at.", NonNullType(typ))).
		AddField(NewField("mutationType", "If this server supports mutation, the type that mutation operations will be rooted at.", typ)).
		AddField(NewField("subscriptionType", "If this server support subscription, the type that subscription operations will be rooted at.", typ)).
		AddField(NewField("directives", "A list of all directives supported by this server.", NonNullType(listOf("__Directive"))))

	typeType := NewObject("__Type", "The fundamental unit of any GraphQL Schema is the type.").
		AddField(NewField("kind", "The kind of type.", NonNullType(NamedType("__TypeKind")))).
		AddField(NewField("name", "The name of the type.", str)).
		AddField(NewField("description", "The description of the type.", str)).
		AddField(NewField("specifiedByURL", "", str)).
		AddField(NewField("fields", "", listOf("__Field")).AddArgument(includeDeprecated())).
		AddField(NewField("interfaces", "", listOf("__Type"))).
		AddField(NewField("possibleTypes", "", listOf("__Type"))).
		AddField(NewField("enumValues", "", listOf("__EnumValue")).AddArgument(includeDeprecated())).
		AddField(NewField("inputFields", "", listOf("__InputValue")).AddArgument(includeDeprecated())).
		AddField(NewField("ofType", "", typ)).
		AddField(NewField("isOneOf", "", boolean))

	fieldType := NewObject("__Field", "").
		AddField(NewField("name", "", nonNullStr)).
		AddField(NewField("description", "", str)).
		AddField(NewField("args", "", NonNullType(listOf("__InputValue"))).AddArgument(includeDeprecated())).
		AddField(NewField("type", "", NonNullType(typ))).
		AddField(NewField("isDeprecated", "", nonNullBool)).
		AddField(NewField("deprecationReason", "", str))

	inputValueType := NewObject("__InputValue", "").
		AddField(NewField("name", "", nonNullStr)).
		AddField(NewField("description", "", str)).
		AddField(NewField("type", "", NonNullType(typ))).
		AddField(NewField("defaultValue", "", str)).
		AddField(NewField("isDeprecated", "", nonNullBool)).
		AddField(NewField("deprecationReason", "", str))

	enumValueType := NewObject("__EnumValue", "").
		AddField(NewField("name", "", nonNullStr)).
		AddField(NewField("description", "", str)).
		AddField(NewField("isDeprecated", "", nonNullBool)).
		AddField(NewField("deprecationReason", "", str))

	directiveType := NewObject("__Directive", "").
		AddField(NewField("name", "", nonNullStr)).
		AddField(NewField("description", "", str)).
		AddField(NewField("isRepeatable", "", nonNullBool)).
		AddField(NewField("locations", "", NonNullType(listOf("__DirectiveLocation")))).
		AddField(NewField("args", "", NonNullType(listOf("__InputValue"))).AddArgument(includeDeprecated()))

	typeKind := NewEnum("__TypeKind", "An enum describing what kind of type a given `__Type` is.")
	for _, k := range []TypeKind{
		TypeKindScalar, TypeKindObject, TypeKindInterface, TypeKindUnion,
		TypeKindEnum, TypeKindInputObject, TypeKindList, TypeKindNonNull,
	} {
		typeKind.AddValue(NewEnumValue(string(k), ""))
	}

	locations := NewEnum("__DirectiveLocation", "A Directive can be adjacent to many parts of the GraphQL language.")
	for _, l := range []DirectiveLocation{
		LocationQuery, LocationMutation, LocationSubscription, LocationField,
		LocationFragmentDefinition, LocationFragmentSpread, LocationInlineFragment,
		LocationVariableDefinition, LocationSchema, LocationScalar, LocationObject,
		LocationFieldDefinition, LocationArgumentDefinition, LocationInterface,
		LocationUnion, LocationEnum, LocationEnumValue, LocationInputObject,
		LocationInputFieldDefinition,
	} {
		locations.AddValue(NewEnumValue(string(l), ""))
	}

	return []Named{schemaType, typeType, fieldType, inputValueType, enumValueType, directiveType, typeKind, locations}
}
