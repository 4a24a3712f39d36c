package engine

// The HarfBuzz module is expected to export the full C API surface below plus
// the hbw_* shim entry points that install callback trampolines. Instantiation
// validates the whole list up front so a stale or misbuilt module fails fast
// instead of panicking on the first missing function mid-shape.

var allocSymbols = []string{
	"malloc",
	"free",
}

var versionSymbols = []string{
	"hb_version",
	"hb_version_atleast",
	"hb_version_string",
}

// Direction and tag string conversions are pure tag math done host-side, so
// their hb_* counterparts are not required of the module.
var commonSymbols = []string{
	"hb_language_from_string",
	"hb_language_to_string",
	"hb_language_get_default",
	"hb_script_from_string",
	"hb_script_get_horizontal_direction",
	"hb_feature_from_string",
	"hb_feature_to_string",
	"hb_segment_properties_equal",
	"hb_segment_properties_hash",
}

// Blob creation goes through the hbw_blob_create shim, which supplies the
// guest-side destroy notify hb_blob_create needs.
var blobSymbols = []string{
	"hb_blob_create_sub_blob",
	"hb_blob_get_empty",
	"hb_blob_reference",
	"hb_blob_destroy",
	"hb_blob_get_data",
	"hb_blob_get_data_writable",
	"hb_blob_get_length",
	"hb_blob_is_immutable",
	"hb_blob_make_immutable",
}

var bufferSymbols = []string{
	"hb_buffer_create",
	"hb_buffer_get_empty",
	"hb_buffer_reference",
	"hb_buffer_destroy",
	"hb_buffer_reset",
	"hb_buffer_clear_contents",
	"hb_buffer_pre_allocate",
	"hb_buffer_allocation_successful",
	"hb_buffer_add",
	"hb_buffer_add_codepoints",
	"hb_buffer_add_utf8",
	"hb_buffer_set_content_type",
	"hb_buffer_get_content_type",
	"hb_buffer_set_direction",
	"hb_buffer_get_direction",
	"hb_buffer_set_script",
	"hb_buffer_get_script",
	"hb_buffer_set_language",
	"hb_buffer_get_language",
	"hb_buffer_set_flags",
	"hb_buffer_get_flags",
	"hb_buffer_set_cluster_level",
	"hb_buffer_get_cluster_level",
	"hb_buffer_set_length",
	"hb_buffer_get_length",
	"hb_buffer_set_segment_properties",
	"hb_buffer_get_segment_properties",
	"hb_buffer_guess_segment_properties",
	"hb_buffer_get_glyph_infos",
	"hb_buffer_get_glyph_positions",
	"hb_buffer_normalize_glyphs",
	"hb_buffer_reverse",
	"hb_buffer_reverse_range",
	"hb_buffer_reverse_clusters",
	"hb_buffer_serialize_glyphs",
	"hb_buffer_serialize_list_formats",
	"hb_buffer_set_replacement_codepoint",
	"hb_buffer_get_replacement_codepoint",
	"hb_buffer_set_unicode_funcs",
	"hb_buffer_get_unicode_funcs",
}

var faceSymbols = []string{
	"hb_face_create",
	"hb_face_get_empty",
	"hb_face_reference",
	"hb_face_destroy",
	"hb_face_reference_blob",
	"hb_face_reference_table",
	"hb_face_set_index",
	"hb_face_get_index",
	"hb_face_set_upem",
	"hb_face_get_upem",
	"hb_face_set_glyph_count",
	"hb_face_get_glyph_count",
	"hb_face_get_table_tags",
	"hb_face_is_immutable",
	"hb_face_make_immutable",
	"hb_face_collect_unicodes",
	"hb_face_collect_variation_selectors",
	"hb_face_collect_variation_unicodes",
	"hb_face_builder_create",
	"hb_face_builder_add_table",
}

var fontSymbols = []string{
	"hb_font_create",
	"hb_font_create_sub_font",
	"hb_font_get_empty",
	"hb_font_reference",
	"hb_font_destroy",
	"hb_font_get_face",
	"hb_font_get_parent",
	"hb_font_set_scale",
	"hb_font_get_scale",
	"hb_font_set_ppem",
	"hb_font_get_ppem",
	"hb_font_set_ptem",
	"hb_font_get_ptem",
	"hb_font_is_immutable",
	"hb_font_make_immutable",
	"hb_font_set_funcs",
	"hb_font_set_variations",
	"hb_font_set_var_coords_design",
	"hb_font_set_var_coords_normalized",
	"hb_font_get_var_coords_normalized",
	"hb_font_glyph_from_string",
	"hb_font_glyph_to_string",
	"hb_font_get_glyph",
	"hb_font_get_nominal_glyph",
	"hb_font_get_variation_glyph",
	"hb_font_get_glyph_name",
	"hb_font_get_glyph_from_name",
	"hb_font_get_h_extents",
	"hb_font_get_v_extents",
	"hb_font_get_glyph_extents",
	"hb_font_get_glyph_h_advance",
	"hb_font_get_glyph_v_advance",
	"hb_font_get_glyph_h_origin",
	"hb_font_get_glyph_v_origin",
	"hb_font_get_glyph_h_kerning",
	"hb_font_get_glyph_v_kerning",
	"hb_font_get_glyph_contour_point",
	"hb_font_get_glyph_advance_for_direction",
	"hb_font_get_glyph_origin_for_direction",
	"hb_font_add_glyph_origin_for_direction",
	"hb_font_subtract_glyph_origin_for_direction",
	"hb_font_funcs_create",
	"hb_font_funcs_get_empty",
	"hb_font_funcs_reference",
	"hb_font_funcs_destroy",
	"hb_font_funcs_is_immutable",
	"hb_font_funcs_make_immutable",
	"hb_ot_font_set_funcs",
}

var unicodeSymbols = []string{
	"hb_unicode_funcs_create",
	"hb_unicode_funcs_get_default",
	"hb_unicode_funcs_get_empty",
	"hb_unicode_funcs_get_parent",
	"hb_unicode_funcs_reference",
	"hb_unicode_funcs_destroy",
	"hb_unicode_funcs_is_immutable",
	"hb_unicode_funcs_make_immutable",
	"hb_unicode_combining_class",
	"hb_unicode_general_category",
	"hb_unicode_mirroring",
	"hb_unicode_script",
	"hb_unicode_compose",
	"hb_unicode_decompose",
}

var shapeSymbols = []string{
	"hb_shape",
	"hb_shape_full",
	"hb_shape_list_shapers",
	"hb_shape_plan_create",
	"hb_shape_plan_create_cached",
	"hb_shape_plan_get_empty",
	"hb_shape_plan_reference",
	"hb_shape_plan_destroy",
	"hb_shape_plan_execute",
	"hb_shape_plan_get_shaper",
}

var setSymbols = []string{
	"hb_set_create",
	"hb_set_get_empty",
	"hb_set_reference",
	"hb_set_destroy",
	"hb_set_clear",
	"hb_set_is_empty",
	"hb_set_has",
	"hb_set_add",
	"hb_set_add_range",
	"hb_set_del",
	"hb_set_del_range",
	"hb_set_is_equal",
	"hb_set_set",
	"hb_set_union",
	"hb_set_intersect",
	"hb_set_subtract",
	"hb_set_symmetric_difference",
	"hb_set_get_population",
	"hb_set_get_min",
	"hb_set_get_max",
	"hb_set_next",
	"hb_set_previous",
	"hb_set_next_range",
	"hb_set_previous_range",
}

var otSymbols = []string{
	"hb_ot_tag_to_script",
	"hb_ot_tag_to_language",
	"hb_ot_tag_from_language",
	"hb_ot_tags_from_script_and_language",
	"hb_ot_shape_glyphs_closure",
	"hb_ot_shape_plan_collect_lookups",
	"hb_ot_layout_has_glyph_classes",
	"hb_ot_layout_has_substitution",
	"hb_ot_layout_has_positioning",
	"hb_ot_layout_get_glyph_class",
	"hb_ot_layout_get_glyphs_in_class",
	"hb_ot_layout_get_attach_points",
	"hb_ot_layout_get_ligature_carets",
	"hb_ot_layout_get_size_params",
	"hb_ot_layout_table_get_script_tags",
	"hb_ot_layout_table_find_script",
	"hb_ot_layout_table_get_feature_tags",
	"hb_ot_layout_table_get_lookup_count",
	"hb_ot_layout_script_get_language_tags",
	"hb_ot_layout_script_find_language",
	"hb_ot_layout_language_get_required_feature",
	"hb_ot_layout_language_get_feature_tags",
	"hb_ot_layout_language_get_feature_indexes",
	"hb_ot_layout_language_find_feature",
	"hb_ot_layout_feature_get_lookups",
	"hb_ot_layout_collect_lookups",
	"hb_ot_layout_lookup_collect_glyphs",
	"hb_ot_layout_lookup_would_substitute",
	"hb_ot_layout_lookup_substitute_closure",
	"hb_ot_math_has_data",
	"hb_ot_math_get_constant",
	"hb_ot_math_get_glyph_italics_correction",
	"hb_ot_math_get_glyph_top_accent_attachment",
	"hb_ot_math_is_glyph_extended_shape",
	"hb_ot_math_get_glyph_kerning",
	"hb_ot_math_get_glyph_variants",
	"hb_ot_math_get_min_connector_overlap",
	"hb_ot_math_get_glyph_assembly",
	"hb_ot_var_has_data",
	"hb_ot_var_get_axis_count",
	"hb_ot_var_get_axis_infos",
	"hb_ot_var_normalize_variations",
	"hb_ot_var_normalize_coords",
}

// shimSymbols are exports of the callback shim compiled into the module. Each
// installs a C trampoline that forwards to the matching hbw host import with
// the given token.
var shimSymbols = []string{
	"hbw_blob_create",
	"hbw_face_create_for_tables",
	"hbw_font_funcs_set_nominal_glyph_func",
	"hbw_font_funcs_set_variation_glyph_func",
	"hbw_font_funcs_set_glyph_h_advance_func",
	"hbw_font_funcs_set_glyph_v_advance_func",
	"hbw_font_funcs_set_glyph_h_origin_func",
	"hbw_font_funcs_set_glyph_v_origin_func",
	"hbw_font_funcs_set_glyph_h_kerning_func",
	"hbw_font_funcs_set_glyph_extents_func",
	"hbw_font_funcs_set_glyph_name_func",
	"hbw_font_funcs_set_glyph_from_name_func",
	"hbw_font_funcs_set_font_h_extents_func",
	"hbw_font_funcs_set_font_v_extents_func",
	"hbw_unicode_funcs_set_combining_class_func",
	"hbw_unicode_funcs_set_general_category_func",
	"hbw_unicode_funcs_set_mirroring_func",
	"hbw_unicode_funcs_set_script_func",
	"hbw_unicode_funcs_set_compose_func",
	"hbw_unicode_funcs_set_decompose_func",
}

// RequiredSymbols returns every export the instance must provide.
func RequiredSymbols() []string {
	groups := [][]string{
		allocSymbols,
		versionSymbols,
		commonSymbols,
		blobSymbols,
		bufferSymbols,
		faceSymbols,
		fontSymbols,
		unicodeSymbols,
		shapeSymbols,
		setSymbols,
		otSymbols,
		shimSymbols,
	}
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]string, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
