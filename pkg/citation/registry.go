package citation

import "strings"

// GenericDisplayName labels documents from an unknown family. Raw file
// names are never shown to the user.
const GenericDisplayName = "Văn bản pháp luật"

// DefaultDomainID is the fixed fallback family when nothing else is known.
const DefaultDomainID = "hon_nhan"

// domainEntry describes one document family.
type domainEntry struct {
	DisplayName string
	PDFFile     string
}

// Registry maps document-family identifiers to display names and backing
// files, and chunk/PDF file names back to families. It replaces the
// name-mapping tables that used to be duplicated across call sites.
type Registry struct {
	domains    map[string]domainEntry
	jsonToID   map[string]string
	pdfToID    map[string]string
	defaultsID string
}

// NewRegistry returns the registry of known Vietnamese legal document
// families served by the backend.
func NewRegistry() *Registry {
	r := &Registry{
		domains:    make(map[string]domainEntry),
		jsonToID:   make(map[string]string),
		pdfToID:    make(map[string]string),
		defaultsID: DefaultDomainID,
	}

	r.register("hon_nhan", "Luật Hôn nhân và Gia đình", "luat_hon_nhan.pdf",
		"luat_hon_nhan_hopnhat.json", "luat_hon_nhan.json")
	r.register("lao_dong", "Bộ luật Lao động", "luat_lao_dong.pdf",
		"luat_lao_dong_hopnhat.json", "luat_lao_donghopnhat.json")
	r.register("dat_dai", "Luật Đất đai", "luat_dat_dai.pdf",
		"luat_dat_dai_hopnhat.json")
	r.register("dau_thau", "Luật Đấu thầu", "luat_dau_thau.pdf",
		"luat_dauthau_hopnhat.json", "luat_dau_thau_hopnhat.json")
	r.register("chuyen_giao_cong_nghe", "Luật Chuyển giao công nghệ", "luat_chuyen_giao_cong_nghe.pdf",
		"chuyen_giao_cong_nghe_hopnhat.json")
	r.register("lshtt", "Bộ luật Sở hữu trí tuệ", "luat_so_huu_tri_tue.pdf",
		"luat_so_huu_tri_tue_hopnhat.json")
	r.register("hinh_su", "Bộ luật Hình sự", "luat_hinh_su.pdf",
		"luat_hinh_su_hopnhat.json")
	r.register("nghi_dinh_214", "Nghị định 214/2025/NĐ-CP", "nghi_dinh_214_2025.pdf",
		"nghi_dinh_214_2025.json")

	return r
}

func (r *Registry) register(id, displayName, pdfFile string, jsonFiles ...string) {
	r.domains[id] = domainEntry{DisplayName: displayName, PDFFile: pdfFile}
	r.pdfToID[pdfFile] = id
	for _, jf := range jsonFiles {
		r.jsonToID[jf] = id
	}
}

// DisplayName returns the human-readable name for a document family, or
// the generic label for unknown identifiers.
func (r *Registry) DisplayName(domainID string) string {
	if entry, ok := r.domains[domainID]; ok {
		return entry.DisplayName
	}
	return GenericDisplayName
}

// PDFFile returns the backing PDF file for a document family, or the
// default family's file for unknown identifiers.
func (r *Registry) PDFFile(domainID string) string {
	if entry, ok := r.domains[domainID]; ok {
		return entry.PDFFile
	}
	return r.domains[r.defaultsID].PDFFile
}

// DomainForJSON maps a backend chunk-file name to its document family.
func (r *Registry) DomainForJSON(jsonFile string) (string, bool) {
	id, ok := r.jsonToID[jsonFile]
	return id, ok
}

// DomainForPDF maps a PDF file name to its document family. Matching is by
// substring as well, because the backend sometimes qualifies file names with
// path prefixes.
func (r *Registry) DomainForPDF(pdfFile string) (string, bool) {
	if id, ok := r.pdfToID[pdfFile]; ok {
		return id, true
	}
	for known, id := range r.pdfToID {
		if strings.Contains(pdfFile, known) {
			return id, true
		}
	}
	return "", false
}

// DefaultDomain returns the fixed fallback family identifier.
func (r *Registry) DefaultDomain() string {
	return r.defaultsID
}

// KnownDomains returns all registered family identifiers.
func (r *Registry) KnownDomains() []string {
	ids := make([]string, 0, len(r.domains))
	for id := range r.domains {
		ids = append(ids, id)
	}
	return ids
}
